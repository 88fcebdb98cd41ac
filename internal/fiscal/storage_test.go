package fiscal

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "photos"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should write the file and return its name", func() {
			name, err := storage.Save("receipt.jpg", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("receipt.jpg"))
			Expect(filepath.Join(tmpDir, "photos", "receipt.jpg")).To(BeAnExistingFile())
		})

		It("should not escape the base directory", func() {
			name, err := storage.Save("../../evil.jpg", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("evil.jpg"))
			Expect(filepath.Join(tmpDir, "photos", "evil.jpg")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("should read a saved file", func() {
			_, err := storage.Save("a.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())
			data, err := storage.Get("a.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png")))
		})

		It("returns an error for a missing file", func() {
			_, err := storage.Get("missing.png")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("should remove the file", func() {
			_, err := storage.Save("a.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Delete("a.png")).To(Succeed())
			Expect(filepath.Join(tmpDir, "photos", "a.png")).NotTo(BeAnExistingFile())
		})
	})
})

var _ = Describe("sanitizeFilename", func() {
	DescribeTable("cleans names",
		func(in, expected string) {
			Expect(sanitizeFilename(in)).To(Equal(expected))
		},
		Entry("special characters", "Nota (1)!.JPG", "Nota 1.jpg"),
		Entry("only symbols", "@@@.png", "receipt.png"),
		Entry("path components", "../x/foto.heic", "foto.heic"),
	)
})
