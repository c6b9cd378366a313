package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ask Command", func() {
	var (
		requests chan map[string]any
		reply    map[string]any
		status   int
		srv      *httptest.Server
		tmpDir   string
	)

	BeforeEach(func() {
		requests = make(chan map[string]any, 1)
		status = http.StatusOK
		reply = map[string]any{
			"response": "Hi there",
			"history": []map[string]any{
				{"role": "user", "content": "Hello"},
				{"role": "assistant", "content": "Hi there"},
			},
			"status": 200,
			"time":   "2025-06-01 12:00:00",
		}

		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			body["path"] = r.URL.Path
			requests <- body

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			Expect(json.NewEncoder(w).Encode(reply)).To(Succeed())
		}))

		var err error
		tmpDir, err = os.MkdirTemp("", "murasame-ask-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		srv.Close()
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) (string, string, error) {
		cmd := NewAskCmd()
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
		err := cmd.ExecuteContext(context.Background())
		return stdout.String(), stderr.String(), err
	}

	It("sends the prompt with an empty history to /chat", func() {
		stdout, _, err := execute("Hello")
		Expect(err).NotTo(HaveOccurred())

		body := <-requests
		Expect(body["path"]).To(Equal("/chat"))
		Expect(body["prompt"]).To(Equal("Hello"))
		Expect(body["history"]).To(Equal([]any{}))
		Expect(stdout).To(ContainSubstring("Hi there"))
		Expect(stdout).To(ContainSubstring("chat · 2 turns · 2025-06-01 12:00:00"))
	})

	It("sends endpoint specific fields", func() {
		_, _, err := execute("--endpoint", "vision", "--image", "http://x/img.png", "what is this")
		Expect(err).NotTo(HaveOccurred())

		body := <-requests
		Expect(body["path"]).To(Equal("/vision"))
		Expect(body["image"]).To(Equal("http://x/img.png"))
		Expect(body).NotTo(HaveKey("max_new_tokens"))
	})

	It("rejects unknown endpoints without calling the server", func() {
		_, _, err := execute("--endpoint", "poetry", "Hello")
		Expect(err).To(MatchError(ContainSubstring("unknown endpoint")))
		Expect(requests).To(BeEmpty())
	})

	It("continues a conversation stored in a history file", func() {
		historyPath := filepath.Join(tmpDir, "chat.json")

		_, _, err := execute("--history", historyPath, "--save", "Hello")
		Expect(err).NotTo(HaveOccurred())
		<-requests

		saved, err := os.ReadFile(historyPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(MatchJSON(`[
			{"role":"user","content":"Hello"},
			{"role":"assistant","content":"Hi there"}
		]`))

		_, _, err = execute("--history", historyPath, "--endpoint", "qa", "")
		Expect(err).NotTo(HaveOccurred())
		body := <-requests
		Expect(body["history"]).To(HaveLen(2))
		Expect(body["prompt"]).To(Equal(""))
	})

	It("requires --history with --save", func() {
		stdout, _, err := execute("--save", "Hello")
		Expect(err).To(MatchError(ContainSubstring("--save needs --history")))
		Expect(stdout).NotTo(ContainSubstring("Usage:"))
	})

	It("reports failure envelopes on stderr", func() {
		reply["status"] = 500
		reply["response"] = "error: all adapters failed for chat (attempted local): boom"

		stdout, stderr, err := execute("Hello")
		Expect(err).To(MatchError(ErrFailed))
		Expect(stdout).To(BeEmpty())
		Expect(stderr).To(ContainSubstring("attempted local"))
	})

	It("prints the raw envelope", func() {
		stdout, _, err := execute("--raw", "Hello")
		Expect(err).NotTo(HaveOccurred())
		<-requests
		Expect(stdout).To(MatchJSON(`{
			"response": "Hi there",
			"history": [
				{"role":"user","content":"Hello"},
				{"role":"assistant","content":"Hi there"}
			],
			"status": 200,
			"time": "2025-06-01 12:00:00"
		}`))
	})

	It("surfaces transport errors", func() {
		status = http.StatusBadRequest
		reply = map[string]any{"error": "invalid request body"}

		_, _, err := execute("Hello")
		Expect(err).To(MatchError(ContainSubstring("server returned 400: invalid request body")))
	})

	It("renders markdown when asked to", func() {
		reply["response"] = "# Title\n\nsome **bold** text"
		markdown := true
		cmder := &askCommander{serverURL: srv.URL, endpoint: "chat", markdown: &markdown}

		var out bytes.Buffer
		Expect(cmder.print(&out, reply["response"].(string))).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Title"))
		Expect(out.String()).To(ContainSubstring("bold"))
	})
})
