package local_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/provider"
	"github.com/papercomputeco/murasame/pkg/provider/local"
)

var _ = Describe("RawEngine", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		received map[string]any
		engine   *local.RawEngine
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"model":"murasame","response":"Hi there","done":true,"done_reason":"stop"}`)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/generate"))
			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &received)).To(Succeed())
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		engine = local.NewRawEngine(server.URL+"/", "murasame", 0, zap.NewNop())
	})

	It("sends the prompt raw with the sampling options", func() {
		params := local.DefaultParams()
		params.Stop = []string{local.EndOfTurn}

		out, err := engine.Generate(context.Background(), "<|im_start|>user\nHello<|im_end|>\n", params)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Hi there"))

		Expect(received["model"]).To(Equal("murasame"))
		Expect(received["raw"]).To(BeTrue())
		Expect(received["stream"]).To(BeFalse())
		Expect(received["prompt"]).To(Equal("<|im_start|>user\nHello<|im_end|>\n"))
		Expect(received["options"]).To(Equal(map[string]any{
			"temperature": 0.9,
			"top_p":       0.95,
			"top_k":       float64(20),
			"num_predict": float64(2048),
			"stop":        []any{"<|im_end|>"},
		}))
	})

	It("reports a failing engine with its status", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"model not loaded"}`)
		}

		_, err := engine.Generate(context.Background(), "x", local.DefaultParams())
		var adapterErr *provider.AdapterError
		Expect(errors.As(err, &adapterErr)).To(BeTrue())
		Expect(adapterErr.Adapter).To(Equal(provider.LocalEngine))
		Expect(adapterErr.Status).To(Equal(http.StatusInternalServerError))
		Expect(adapterErr.BodyExcerpt).To(ContainSubstring("model not loaded"))
	})

	It("reports a body without generated text", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"done":true}`)
		}

		_, err := engine.Generate(context.Background(), "x", local.DefaultParams())
		var adapterErr *provider.AdapterError
		Expect(errors.As(err, &adapterErr)).To(BeTrue())
	})
})
