package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murasame/pkg/conversation"
)

var _ = Describe("History", func() {
	Describe("Append", func() {
		It("returns a history one turn longer with the turn last", func() {
			h := conversation.History{
				conversation.UserTurn("Hello"),
				conversation.AssistantTurn("Hi there"),
			}
			t := conversation.UserTurn("How are you?")

			out := conversation.Append(h, t)

			Expect(out).To(HaveLen(len(h) + 1))
			Expect(out[len(out)-1]).To(Equal(t))
		})

		It("does not mutate the original history", func() {
			h := conversation.History{conversation.UserTurn("Hello")}
			snapshot := h.Clone()

			_ = conversation.Append(h, conversation.AssistantTurn("Hi"))

			Expect(h).To(Equal(snapshot))
		})

		It("does not write into spare capacity of the original", func() {
			backing := make(conversation.History, 1, 4)
			backing[0] = conversation.UserTurn("Hello")

			a := conversation.Append(backing, conversation.AssistantTurn("first"))
			b := conversation.Append(backing, conversation.AssistantTurn("second"))

			Expect(a[1].Content.Text()).To(Equal("first"))
			Expect(b[1].Content.Text()).To(Equal("second"))
			Expect(backing[:cap(backing)][1]).To(Equal(conversation.Turn{}))
		})

		It("appends to a nil history", func() {
			out := conversation.Append(nil, conversation.UserTurn("Hello"))

			Expect(out).To(Equal(conversation.History{conversation.UserTurn("Hello")}))
		})
	})

	Describe("LastUserIndex", func() {
		It("finds the most recent user turn", func() {
			h := conversation.History{
				conversation.SystemTurn("be brief"),
				conversation.UserTurn("one"),
				conversation.AssistantTurn("two"),
				conversation.UserTurn("three"),
				conversation.AssistantTurn("four"),
			}

			Expect(h.LastUserIndex()).To(Equal(3))
		})

		It("returns -1 without user turns", func() {
			h := conversation.History{conversation.SystemTurn("be brief")}

			Expect(h.LastUserIndex()).To(Equal(-1))
		})
	})

	Describe("HasImages", func() {
		It("is false for plain text", func() {
			h := conversation.History{conversation.UserTurn("hi")}

			Expect(h.HasImages()).To(BeFalse())
		})

		It("is true once an image is attached", func() {
			h, err := conversation.AttachImage(conversation.History{conversation.UserTurn("hi")}, "http://x/img.png")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.HasImages()).To(BeTrue())
		})
	})

	Describe("ParseRole", func() {
		It("accepts known roles case-insensitively", func() {
			r, err := conversation.ParseRole(" User ")
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(conversation.RoleUser))
		})

		It("rejects unknown roles", func() {
			_, err := conversation.ParseRole("tool")
			Expect(err).To(MatchError(conversation.ErrInvalidHistory))
		})
	})
})
