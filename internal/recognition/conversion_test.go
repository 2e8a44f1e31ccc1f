package recognition

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.Black)
	}
	return img
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func jpegBytes() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("preparePNG", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		converted   bool
		err         error
	)

	JustBeforeEach(func() {
		out, converted, err = preparePNG(data, contentType)
	})

	When("the input is already PNG", func() {
		BeforeEach(func() {
			data = pngBytes()
			contentType = "image/png"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pass the bytes through", func() {
			Expect(converted).To(BeFalse())
			Expect(out).To(Equal(data))
		})
	})

	When("the input is JPEG", func() {
		BeforeEach(func() {
			data = jpegBytes()
			contentType = " IMAGE/JPEG "
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should convert to PNG", func() {
			Expect(converted).To(BeTrue())
			img, format, decodeErr := image.Decode(bytes.NewReader(out))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(img.Bounds().Dx()).To(Equal(8))
		})
	})

	When("the content type is missing", func() {
		BeforeEach(func() {
			data = jpegBytes()
			contentType = ""
		})

		It("should sniff the format", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
		})
	})

	When("the input is not an image", func() {
		BeforeEach(func() {
			data = []byte("definitely not an image")
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			data = nil
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("empty image data"))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect a heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("should detect a mif1 brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmif1\x00\x00"))).To(BeTrue())
	})

	It("should reject other ftyp brands", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
	})

	It("should reject short input", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})

var _ = Describe("isHEICMimeType", func() {
	It("should match heic and heif types", func() {
		Expect(isHEICMimeType("image/HEIC")).To(BeTrue())
		Expect(isHEICMimeType(" image/heif-sequence")).To(BeTrue())
	})

	It("should not match jpeg", func() {
		Expect(isHEICMimeType("image/jpeg")).To(BeFalse())
	})
})

var _ = Describe("ContentTypeFor", func() {
	DescribeTable("maps extensions",
		func(name, expected string) {
			Expect(ContentTypeFor(name)).To(Equal(expected))
		},
		Entry("jpeg", "scan.JPG", "image/jpeg"),
		Entry("png", "scan.png", "image/png"),
		Entry("tiff", "scan.TIFF", "image/tiff"),
		Entry("pdf", "invoice.pdf", "application/pdf"),
		Entry("heic", "IMG_0001.HEIC", "image/heic"),
		Entry("unknown", "notes.txt", "application/octet-stream"),
	)

	It("should report support by extension", func() {
		Expect(Supported("a.jpeg")).To(BeTrue())
		Expect(Supported("a.fields.json")).To(BeFalse())
	})
})
