package mergecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

var _ = Describe("Merge Command", func() {
	var (
		ctx    context.Context
		tmpDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "murasame-merge-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	seed := func(name string, turns ...conversation.Turn) string {
		path := filepath.Join(tmpDir, name)
		storer, err := transcript.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer storer.Close()

		var parent *transcript.Node
		for _, turn := range turns {
			node := transcript.NewNode(turn, parent)
			Expect(storer.Put(ctx, node)).To(Succeed())
			parent = node
		}
		return path
	}

	merge := func(target string, sources ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewMergeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--sqlite", target}, sources...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("unions sources and skips shared prefixes", func() {
		alice := seed("alice.db", conversation.UserTurn("Hello"), conversation.AssistantTurn("Hi Alice"))
		bob := seed("bob.db", conversation.UserTurn("Hello"), conversation.AssistantTurn("Hi Bob"))
		target := filepath.Join(tmpDir, "merged.db")

		out, err := merge(target, alice, bob)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Merged 3 new nodes from 2 sources (1 already existed)"))

		merged, err := transcript.NewSQLiteStorer(target)
		Expect(err).NotTo(HaveOccurred())
		defer merged.Close()

		roots, err := merged.Roots(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(roots).To(HaveLen(1))

		leaves, err := merged.Leaves(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveLen(2))
	})

	It("is idempotent", func() {
		alice := seed("alice.db", conversation.UserTurn("Hello"))
		target := filepath.Join(tmpDir, "merged.db")

		_, err := merge(target, alice)
		Expect(err).NotTo(HaveOccurred())
		out, err := merge(target, alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Merged 0 new nodes from 1 sources (1 already existed)"))
	})

	It("fails on a missing source", func() {
		_, err := merge(filepath.Join(tmpDir, "merged.db"), filepath.Join(tmpDir, "missing.db"))
		Expect(err).To(MatchError(ContainSubstring("missing.db")))
	})
})
