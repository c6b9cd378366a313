package transcript_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

var _ = Describe("Recorder", func() {
	var (
		storer   *transcript.MemoryStorer
		recorder *transcript.Recorder
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		storer = transcript.NewMemoryStorer()
		recorder = transcript.NewRecorder(storer, zap.NewNop())
	})

	It("stores the conversation as a chain with metadata on the head", func() {
		history := conversation.History{user("Hello"), assistant("Hi there")}
		meta := transcript.Meta{Endpoint: "chat", Adapter: "local", Model: "Murasame"}

		head, err := recorder.Record(ctx, history, meta)
		Expect(err).NotTo(HaveOccurred())

		path, err := storer.Ancestry(ctx, head)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveLen(2))
		Expect(path[0].Turn).To(Equal(assistant("Hi there")))
		Expect(path[0].Meta).To(Equal(meta))
		Expect(path[1].Turn).To(Equal(user("Hello")))
		Expect(path[1].Meta).To(Equal(transcript.Meta{}))
	})

	It("extends an existing conversation instead of duplicating it", func() {
		first := conversation.History{user("Hello"), assistant("Hi there")}
		_, err := recorder.Record(ctx, first, transcript.Meta{Adapter: "local"})
		Expect(err).NotTo(HaveOccurred())

		second := append(first.Clone(), user("How are you?"), assistant("Fine."))
		head, err := recorder.Record(ctx, second, transcript.Meta{Adapter: "local"})
		Expect(err).NotTo(HaveOccurred())

		nodes, err := storer.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(4))
		Expect(storer.Depth(ctx, head)).To(Equal(3))

		roots, err := storer.Roots(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(roots).To(HaveLen(1))
	})

	It("branches when a different reply follows the same prefix", func() {
		_, err := recorder.Record(ctx, conversation.History{user("2+2?"), assistant("4")}, transcript.Meta{})
		Expect(err).NotTo(HaveOccurred())
		_, err = recorder.Record(ctx, conversation.History{user("2+2?"), assistant("four")}, transcript.Meta{})
		Expect(err).NotTo(HaveOccurred())

		leaves, err := storer.Leaves(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveLen(2))
	})

	It("refuses an empty history", func() {
		_, err := recorder.Record(ctx, nil, transcript.Meta{})
		Expect(err).To(HaveOccurred())
	})
})
