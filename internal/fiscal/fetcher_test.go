package fiscal

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/pantry-manager/internal/pantry"
)

// mockLookup records which lookup was called
type mockLookup struct {
	calls   []string
	args    []string
	receipt *pantry.FiscalReceipt
	err     error
}

func (m *mockLookup) answer(call, arg string) (*pantry.FiscalReceipt, error) {
	m.calls = append(m.calls, call)
	m.args = append(m.args, arg)
	if m.err != nil {
		return nil, m.err
	}
	return m.receipt, nil
}

func (m *mockLookup) ByAccessKey(ctx context.Context, key string) (*pantry.FiscalReceipt, error) {
	return m.answer("key", key)
}

func (m *mockLookup) ByURL(ctx context.Context, rawURL string) (*pantry.FiscalReceipt, error) {
	return m.answer("url", rawURL)
}

func (m *mockLookup) BySatCode(ctx context.Context, code string) (*pantry.FiscalReceipt, error) {
	return m.answer("sat", code)
}

var _ = Describe("Fetcher", func() {
	var (
		lookup  *mockLookup
		fetcher *Fetcher
		text    string
		receipt *pantry.FiscalReceipt
		err     error
	)

	BeforeEach(func() {
		lookup = &mockLookup{receipt: &pantry.FiscalReceipt{StoreName: "Mercado"}}
		fetcher = NewFetcher(lookup)
	})

	JustBeforeEach(func() {
		receipt, err = fetcher.Fetch(context.Background(), text)
	})

	When("the text is an access key with separators", func() {
		BeforeEach(func() {
			text = "1234 5678 9012 3456 7890 1234 5678 9012 3456 7890 1234"
		})

		It("should look up the bare digits", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.StoreName).To(Equal("Mercado"))
			Expect(lookup.calls).To(Equal([]string{"key"}))
			Expect(lookup.args).To(Equal([]string{sampleKey}))
		})
	})

	When("the text is an authority URL with an embedded key", func() {
		BeforeEach(func() {
			text = "https://nfce.fazenda.sp.gov.br/qrcode?chNFe=" + sampleKey
		})

		It("should take the access key path", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup.calls).To(Equal([]string{"key"}))
			Expect(lookup.args).To(Equal([]string{sampleKey}))
		})
	})

	When("the text is an authority URL without a key", func() {
		BeforeEach(func() {
			text = "https://www.nfce.fazenda.mg.gov.br/portalnfce/sistema/qrcode.xhtml?id=9"
		})

		It("should look up the URL", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup.calls).To(Equal([]string{"url"}))
			Expect(lookup.args).To(Equal([]string{text}))
		})
	})

	When("the text is a SAT coupon", func() {
		BeforeEach(func() {
			text = "123456|20240210183000|12345678000190|abc"
		})

		It("should look up the SAT code", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lookup.calls).To(Equal([]string{"sat"}))
		})
	})

	When("the text is not a receipt code", func() {
		BeforeEach(func() {
			text = "https://example.com"
		})

		It("fails without calling the lookup", func() {
			Expect(errors.Is(err, ErrInvalidQRCode)).To(BeTrue())
			Expect(lookup.calls).To(BeEmpty())
		})
	})

	When("no lookup is configured", func() {
		BeforeEach(func() {
			fetcher = NewFetcher(nil)
		})

		When("the text is an access key", func() {
			BeforeEach(func() {
				text = sampleKey
			})

			It("reports the missing lookup", func() {
				Expect(errors.Is(err, ErrNoLookup)).To(BeTrue())
				Expect(receipt).To(BeNil())
			})
		})

		When("the text is not a receipt code", func() {
			BeforeEach(func() {
				text = "hello"
			})

			It("still reports the invalid code", func() {
				Expect(errors.Is(err, ErrInvalidQRCode)).To(BeTrue())
			})
		})
	})

	When("the lookup reports an error", func() {
		BeforeEach(func() {
			text = sampleKey
			lookup.err = &RemoteError{Message: "Nota não encontrada"}
		})

		It("returns the remote error once", func() {
			var remote *RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Message).To(Equal("Nota não encontrada"))
			Expect(lookup.calls).To(HaveLen(1))
		})
	})
})
