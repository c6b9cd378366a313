package local_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/provider"
	"github.com/papercomputeco/murasame/pkg/provider/local"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	prompt  string
	params  local.Params
	reply   string
	failure error
}

func (f *fakeEngine) Generate(_ context.Context, prompt string, params local.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = prompt
	f.params = params
	return f.reply, f.failure
}

var _ = Describe("Adapter", func() {
	var (
		engine  *fakeEngine
		adapter *local.Adapter
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = &fakeEngine{reply: "  Hi there<|im_end|>\n"}
		var err error
		adapter, err = local.New(engine, local.ModeChat, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a text-only adapter", func() {
		Expect(adapter.Name()).To(Equal(provider.LocalEngine))
		Expect(adapter.Capabilities().SupportsImages).To(BeFalse())
	})

	It("renders the history and trims the generated reply", func() {
		reply, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")},
			provider.Config{Model: "Murasame"})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Text).To(Equal("Hi there"))
		Expect(reply.Model).To(Equal("Murasame"))
		Expect(engine.prompt).To(HaveSuffix("<|im_start|>assistant\n<think>\n\n</think>\n\n"))
		Expect(engine.params.Stop).To(Equal([]string{local.EndOfTurn}))
	})

	It("uses the default sampling settings when none are configured", func() {
		_, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")}, provider.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.params.MaxNewTokens).To(Equal(2048))
		Expect(engine.params.Temperature).To(Equal(0.9))
		Expect(engine.params.TopP).To(Equal(0.95))
		Expect(engine.params.TopK).To(Equal(20))
	})

	It("honours a configured token limit", func() {
		_, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")},
			provider.Config{MaxTokens: 64})
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.params.MaxNewTokens).To(Equal(64))
	})

	It("keeps an explicit zero temperature", func() {
		zero := 0.0
		_, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")},
			provider.Config{Temperature: &zero})
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.params.Temperature).To(BeZero())
		Expect(engine.params.TopP).To(Equal(0.95))
	})

	It("rejects image content without calling the engine", func() {
		history, err := conversation.AttachImage(conversation.History{conversation.UserTurn("look")}, "http://x/img.png")
		Expect(err).NotTo(HaveOccurred())

		_, err = adapter.Generate(ctx, history, provider.Config{})
		Expect(err).To(MatchError(provider.ErrUnsupportedModality))
		Expect(engine.calls).To(BeZero())
	})

	It("reports engine failures as adapter errors", func() {
		engine.failure = errors.New("out of memory")

		_, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")}, provider.Config{})
		var adapterErr *provider.AdapterError
		Expect(errors.As(err, &adapterErr)).To(BeTrue())
		Expect(adapterErr.Adapter).To(Equal(provider.LocalEngine))
		Expect(adapterErr.Error()).To(ContainSubstring("out of memory"))
	})

	It("reports an empty generation as an adapter error", func() {
		engine.reply = strings.Repeat(" ", 3)

		_, err := adapter.Generate(ctx, conversation.History{conversation.UserTurn("Hello")}, provider.Config{})
		var adapterErr *provider.AdapterError
		Expect(errors.As(err, &adapterErr)).To(BeTrue())
	})
})
