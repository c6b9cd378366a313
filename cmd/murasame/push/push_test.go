package pushcmder

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/config"
	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/dispatch"
	"github.com/papercomputeco/murasame/pkg/transcript"
	"github.com/papercomputeco/murasame/server"
)

var _ = Describe("Push Command", func() {
	var (
		ctx       context.Context
		tmpDir    string
		localPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "murasame-push-test-*")
		Expect(err).NotTo(HaveOccurred())
		localPath = filepath.Join(tmpDir, "local.db")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	seed := func(turns ...conversation.Turn) {
		local, err := transcript.NewSQLiteStorer(localPath)
		Expect(err).NotTo(HaveOccurred())
		defer local.Close()

		var parent *transcript.Node
		for _, turn := range turns {
			node := transcript.NewNode(turn, parent)
			Expect(local.Put(ctx, node)).To(Succeed())
			parent = node
		}
	}

	startServer := func() (string, transcript.Storer, func()) {
		logger := zap.NewNop()
		storer := transcript.NewMemoryStorer()

		cfg := config.Defaults()
		srv := server.New(config.StaticStore(&cfg), server.Options{
			Dispatcher: dispatch.New(dispatch.NewRegistry(), logger),
			Recorder:   transcript.NewRecorder(storer, logger),
		}, logger)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		go func() {
			_ = srv.RunWithListener(listener)
		}()

		addr := "http://" + listener.Addr().String()
		cleanup := func() {
			_ = srv.Shutdown(context.Background())
		}
		return addr, storer, cleanup
	}

	push := func(addr string) string {
		var out bytes.Buffer
		cmd := NewPushCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", localPath, addr})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return out.String()
	}

	It("pushes local nodes to a remote server", func() {
		seed(conversation.UserTurn("hello from push test"), conversation.AssistantTurn("hi back from push test"))

		addr, remote, cleanup := startServer()
		defer cleanup()

		out := push(addr)
		Expect(out).To(ContainSubstring("Done: 2 stored, 0 already present, 0 rejected"))

		nodes, err := remote.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(2))
	})

	It("deduplicates on double push", func() {
		seed(conversation.UserTurn("dedup push test"))

		addr, remote, cleanup := startServer()
		defer cleanup()

		push(addr)
		out := push(addr)
		Expect(out).To(ContainSubstring("Done: 0 stored, 1 already present, 0 rejected"))

		nodes, err := remote.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(1))
	})

	It("does nothing for an empty transcript", func() {
		seed()

		out := push("http://127.0.0.1:1")
		Expect(out).To(ContainSubstring("Nothing to upload: " + localPath + " holds no recorded turns."))
	})

	It("reports a remote that does not record transcripts", func() {
		seed(conversation.UserTurn("nobody is listening"))

		remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/dag/nodes"))
			http.NotFound(w, r)
		}))
		defer remote.Close()

		var out bytes.Buffer
		cmd := NewPushCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--sqlite", localPath, remote.URL + "/"})

		err := cmd.ExecuteContext(ctx)
		Expect(err).To(MatchError(ContainSubstring("upload of turns 0-0 failed: remote answered 404")))
		Expect(out.String()).NotTo(ContainSubstring("Usage:"))
	})

	It("fails when the database does not exist", func() {
		cmd := NewPushCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--sqlite", filepath.Join(tmpDir, "missing.db"), "http://127.0.0.1:1"})
		Expect(cmd.ExecuteContext(ctx)).To(MatchError(ContainSubstring("could not resolve local database")))
	})
})
