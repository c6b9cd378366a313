package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murasame/pkg/conversation"
)

var _ = Describe("AttachImage", func() {
	const img = "http://x/img.png"

	Context("when the last user turn is plain text", func() {
		It("rewrites it into exactly [text, image]", func() {
			h := conversation.History{conversation.UserTurn("hi")}

			out, err := conversation.AttachImage(h, img)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].Role).To(Equal(conversation.RoleUser))
			Expect(out[0].Content.IsMultimodal()).To(BeTrue())
			Expect(out[0].Content.Parts()).To(Equal([]conversation.Part{
				conversation.TextPart("hi"),
				conversation.ImagePart(img),
			}))
		})

		It("leaves the caller's history untouched", func() {
			h := conversation.History{conversation.UserTurn("hi")}

			_, err := conversation.AttachImage(h, img)

			Expect(err).NotTo(HaveOccurred())
			Expect(h[0].Content.IsMultimodal()).To(BeFalse())
			Expect(h[0].Content.Text()).To(Equal("hi"))
		})
	})

	Context("when the last user turn is already multimodal", func() {
		It("appends another image part", func() {
			h, err := conversation.AttachImage(conversation.History{conversation.UserTurn("hi")}, img)
			Expect(err).NotTo(HaveOccurred())

			out, err := conversation.AttachImage(h, "http://x/other.png")

			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].Content.Parts()).To(Equal([]conversation.Part{
				conversation.TextPart("hi"),
				conversation.ImagePart(img),
				conversation.ImagePart("http://x/other.png"),
			}))
			Expect(h[0].Content.Parts()).To(HaveLen(2))
		})
	})

	It("targets the most recent user turn only", func() {
		h := conversation.History{
			conversation.UserTurn("first"),
			conversation.AssistantTurn("reply"),
			conversation.UserTurn("second"),
			conversation.AssistantTurn("another reply"),
		}

		out, err := conversation.AttachImage(h, img)

		Expect(err).NotTo(HaveOccurred())
		Expect(out[0]).To(Equal(h[0]))
		Expect(out[1]).To(Equal(h[1]))
		Expect(out[2].Content.Images()).To(Equal([]string{img}))
		Expect(out[3]).To(Equal(h[3]))
	})

	It("fails with ErrInvalidHistory when there is no user turn", func() {
		h := conversation.History{
			conversation.SystemTurn("be brief"),
			conversation.AssistantTurn("hello"),
		}

		out, err := conversation.AttachImage(h, img)

		Expect(err).To(MatchError(conversation.ErrInvalidHistory))
		Expect(out).To(BeNil())
		Expect(h[0].Content.IsMultimodal()).To(BeFalse())
		Expect(h[1].Content.IsMultimodal()).To(BeFalse())
	})

	It("fails on an empty history", func() {
		_, err := conversation.AttachImage(nil, img)

		Expect(err).To(MatchError(conversation.ErrInvalidHistory))
	})

	It("is a no-op for an empty url", func() {
		h := conversation.History{conversation.UserTurn("hi")}

		out, err := conversation.AttachImage(h, "")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(h))
	})
})
