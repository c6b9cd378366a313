package transcript_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		Context("when creating a root node", func() {
			It("keeps the turn and has no parent", func() {
				node := transcript.NewNode(conversation.UserTurn("hello"), nil)

				Expect(node.Turn).To(Equal(conversation.UserTurn("hello")))
				Expect(node.ParentHash).To(BeNil())
			})

			It("produces consistent hashes for the same turn", func() {
				node1 := transcript.NewNode(conversation.UserTurn("same"), nil)
				node2 := transcript.NewNode(conversation.UserTurn("same"), nil)

				Expect(node1.Hash).To(Equal(node2.Hash))
			})

			It("distinguishes roles with the same text", func() {
				user := transcript.NewNode(conversation.UserTurn("same"), nil)
				assistant := transcript.NewNode(conversation.AssistantTurn("same"), nil)

				Expect(user.Hash).NotTo(Equal(assistant.Hash))
			})

			It("distinguishes an attached image", func() {
				plain := conversation.UserTurn("look")
				withImage := conversation.Turn{Role: conversation.RoleUser, Content: plain.Content.WithImage("http://x/img.png")}

				Expect(transcript.NewNode(plain, nil).Hash).NotTo(Equal(transcript.NewNode(withImage, nil).Hash))
			})
		})

		Context("when creating a child node", func() {
			var parent *transcript.Node

			BeforeEach(func() {
				parent = transcript.NewNode(conversation.UserTurn("parent"), nil)
			})

			It("links the child to the parent via ParentHash", func() {
				child := transcript.NewNode(conversation.AssistantTurn("child"), parent)

				Expect(child.ParentHash).NotTo(BeNil())
				Expect(*child.ParentHash).To(Equal(parent.Hash))
			})

			It("produces different hashes for the same turn under different parents", func() {
				other := transcript.NewNode(conversation.UserTurn("other parent"), nil)
				child1 := transcript.NewNode(conversation.AssistantTurn("same"), parent)
				child2 := transcript.NewNode(conversation.AssistantTurn("same"), other)

				Expect(child1.Hash).NotTo(Equal(child2.Hash))
			})

			It("ignores metadata when hashing", func() {
				child1 := transcript.NewNode(conversation.AssistantTurn("same"), parent)
				child2 := transcript.NewNode(conversation.AssistantTurn("same"), parent)
				child2.Meta = transcript.Meta{Adapter: "ollama"}

				Expect(child1.Hash).To(Equal(child2.Hash))
			})
		})
	})

	Describe("Hash computation", func() {
		It("produces a valid SHA-256 hex string", func() {
			node := transcript.NewNode(conversation.UserTurn("test"), nil)

			Expect(node.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})
	})

	Describe("Verify", func() {
		It("accepts a node as created", func() {
			Expect(transcript.NewNode(conversation.UserTurn("test"), nil).Verify()).To(BeTrue())
		})

		It("survives a JSON round trip", func() {
			parent := transcript.NewNode(conversation.UserTurn("question"), nil)
			node := transcript.NewNode(conversation.AssistantTurn("answer"), parent)

			data, err := json.Marshal(node)
			Expect(err).NotTo(HaveOccurred())
			var decoded transcript.Node
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())

			Expect(decoded.Verify()).To(BeTrue())
		})

		It("rejects edited content", func() {
			node := transcript.NewNode(conversation.UserTurn("test"), nil)
			node.Turn = conversation.UserTurn("edited")

			Expect(node.Verify()).To(BeFalse())
		})

		It("rejects a nil node", func() {
			var node *transcript.Node
			Expect(node.Verify()).To(BeFalse())
		})
	})
})
