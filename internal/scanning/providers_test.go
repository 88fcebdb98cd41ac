package scanning

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		client *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		client, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Generate", func() {
		When("the server answers", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
					ghttp.VerifyJSONRepresenting(ollamaChatRequest{
						Model: "llava",
						Messages: []ollamaMessage{
							{Role: "system", Content: "sys"},
							{Role: "user", Content: "list brands"},
						},
						Options: &ollamaOptions{Temperature: 0.5, NumPredict: 200},
					}),
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{Role: "assistant", Content: " [\"Ypê\"] "},
						Done:    true,
					}),
				))
			})

			It("should return the single completion trimmed", func() {
				out, err := client.Generate(context.Background(), Prompt{
					System:      "sys",
					User:        "list brands",
					MaxTokens:   200,
					Temperature: 0.5,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(Equal([]string{`["Ypê"]`}))
			})
		})

		When("the server fails", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
			})

			It("returns the error", func() {
				_, err := client.Generate(context.Background(), Prompt{User: "x"})
				Expect(err).To(MatchError(ContainSubstring("model not loaded")))
			})
		})
	})

	Describe("ReadQRCode", func() {
		When("the model reads the code", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
						Message: ollamaMessage{Role: "assistant", Content: "12345678901234567890123456789012345678901234"},
						Done:    true,
					}),
				))
			})

			It("should return the payload", func() {
				payload, err := client.ReadQRCode(context.Background(), []byte("png bytes"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(payload).To(Equal("12345678901234567890123456789012345678901234"))
			})
		})

		When("the model cannot read the code", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "NONE"},
					Done:    true,
				}))
			})

			It("returns ErrNoQRCode", func() {
				_, err := client.ReadQRCode(context.Background(), []byte("png bytes"), "image/png")
				Expect(errors.Is(err, ErrNoQRCode)).To(BeTrue())
			})
		})
	})
})

var _ = Describe("OpenAI", func() {
	var (
		server *ghttp.Server
		client *OpenAI
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		client, err = NewOpenAI(OpenAIConfig{
			APIKey:      "secret",
			BaseURL:     server.URL() + "/v1",
			Model:       "gpt-4o-mini",
			Completions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the endpoint returns several choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer secret"),
				ghttp.VerifyJSON(`{
					"model": "gpt-4o-mini",
					"messages": [{"role": "user", "content": "list"}],
					"max_tokens": 64,
					"temperature": 0.25,
					"n": 2
				}`),
				ghttp.RespondWith(http.StatusOK, `{"choices": [
					{"message": {"role": "assistant", "content": "1. Sadia"}},
					{"message": {"role": "assistant", "content": "  "}},
					{"message": {"role": "assistant", "content": "1. Perdigão"}}
				]}`),
			))
		})

		It("should return the non-empty completions", func() {
			out, err := client.Generate(context.Background(), Prompt{User: "list", MaxTokens: 64, Temperature: 0.25})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]string{"1. Sadia", "1. Perdigão"}))
		})
	})

	When("the endpoint rejects the key", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error": "bad key"}`))
		})

		It("returns the error", func() {
			_, err := client.Generate(context.Background(), Prompt{User: "list"})
			Expect(err).To(MatchError(ContainSubstring("status 401")))
		})
	})

	It("requires an api key", func() {
		_, err := NewOpenAI(OpenAIConfig{})
		Expect(err).To(HaveOccurred())
	})
})
