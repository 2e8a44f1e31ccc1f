package recognition

import (
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

var _ = Describe("OpenAI", func() {
	Describe("NewOpenAI", func() {
		It("should require a key for the public API", func() {
			_, err := NewOpenAI(OpenAIConfig{})
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
		})

		It("should accept a keyless gateway", func() {
			r, err := NewOpenAI(OpenAIConfig{BaseURL: "http://localhost:8000/v1/"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.model).To(Equal("gpt-4o-mini"))
		})
	})

	Describe("Recognize", func() {
		var (
			server  *ghttp.Server
			request map[string]any
			text    string
			err     error
		)

		BeforeEach(func() {
			server = ghttp.NewServer()
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &request)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, chatCompletion("```\n发票号码：12345678\n```")),
			))

			r, newErr := NewOpenAI(OpenAIConfig{BaseURL: server.URL() + "/v1/", Model: "test-model"})
			Expect(newErr).NotTo(HaveOccurred())
			text, err = r.Recognize(pngBytes(), "image/png")
		})

		AfterEach(func() {
			server.Close()
		})

		It("should return the cleaned transcription", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("发票号码：12345678"))
		})

		It("should send the configured model", func() {
			Expect(request["model"]).To(Equal("test-model"))
		})
	})
})
