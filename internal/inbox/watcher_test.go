package inbox

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("wanted", func() {
	DescribeTable("filters inbox files",
		func(name string, expected bool) {
			Expect(wanted(filepath.Join("/in", name))).To(Equal(expected))
		},
		Entry("jpeg", "a.jpg", true),
		Entry("heic", "IMG_1.HEIC", true),
		Entry("pdf", "a.pdf", true),
		Entry("sidecar", "a.fields.json", false),
		Entry("hidden", ".a.jpg", false),
		Entry("text", "notes.txt", false),
	)
})

var _ = Describe("Watcher", func() {
	var (
		dir        string
		recognizer *fakeRecognizer
		cancel     context.CancelFunc
		done       chan error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		recognizer = &fakeRecognizer{text: "发票号码：12345678"}
	})

	start := func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		w := NewWatcher(dir, NewProcessor(recognizer, nil), 20*time.Millisecond)
		go func() {
			defer GinkgoRecover()
			done <- w.Run(ctx)
		}()
	}

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	When("an image is dropped in", func() {
		BeforeEach(func() {
			start()
			// give the watcher time to register
			time.Sleep(50 * time.Millisecond)
			Expect(os.WriteFile(filepath.Join(dir, "new.png"), []byte("png"), 0644)).To(Succeed())
		})

		It("should write a sidecar", func() {
			Eventually(filepath.Join(dir, "new.fields.json")).Should(BeAnExistingFile())
		})

		It("should recognize it once", func() {
			Eventually(filepath.Join(dir, "new.fields.json")).Should(BeAnExistingFile())
			Consistently(recognizer.calls, 100*time.Millisecond).Should(Equal(1))
		})
	})

	When("images are already present", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(filepath.Join(dir, "old.jpg"), []byte("jpg"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "done.jpg"), []byte("jpg"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "done.fields.json"), []byte("{}"), 0644)).To(Succeed())
			start()
		})

		It("should process the unprocessed ones", func() {
			Eventually(filepath.Join(dir, "old.fields.json")).Should(BeAnExistingFile())
		})

		It("should skip images that already have a sidecar", func() {
			Eventually(filepath.Join(dir, "old.fields.json")).Should(BeAnExistingFile())
			Consistently(recognizer.calls, 100*time.Millisecond).Should(Equal(1))
		})
	})

	When("other files are dropped in", func() {
		BeforeEach(func() {
			start()
			time.Sleep(50 * time.Millisecond)
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644)).To(Succeed())
		})

		It("should ignore them", func() {
			Consistently(recognizer.calls, 150*time.Millisecond).Should(Equal(0))
		})
	})

	When("the inbox does not exist yet", func() {
		BeforeEach(func() {
			dir = filepath.Join(dir, "inbox")
			start()
		})

		It("should create it", func() {
			Eventually(dir).Should(BeADirectory())
		})
	})
})
