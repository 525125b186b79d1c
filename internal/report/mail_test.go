package report

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowscrape/internal/config"
	"flowscrape/internal/scrapers/flowagility"
)

// fakeSMTP serves a single plain-text SMTP session and delivers the
// raw message it received on the returned channel.
func fakeSMTP(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	out := make(chan string, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			out <- ""
			return
		}
		defer conn.Close()

		write := func(s string) { conn.Write([]byte(s + "\r\n")) }
		write("220 flowscrape-test ESMTP")

		var message strings.Builder
		inData := false
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				out <- message.String()
				return
			}
			if inData {
				if strings.TrimRight(line, "\r\n") == "." {
					inData = false
					write("250 queued")
					continue
				}
				message.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 flowscrape-test")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 end with <CR><LF>.<CR><LF>")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				out <- message.String()
				return
			default:
				write("250 ok")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSendDeliversSummary(t *testing.T) {
	addr, received := fakeSMTP(t)

	cfg := config.ReportConfig{
		SMTPAddr: addr,
		From:     "runs@flow.test",
		To:       []string{"team@flow.test"},
	}
	s := Summarize([]flowagility.DetailedEvent{
		enriched("Copa Nacional", 12, true),
	})

	require.NoError(t, Send(cfg, s))

	select {
	case msg := <-received:
		require.Contains(t, msg, "Subject: flowscrape: 1 eventos, 12 participantes")
		require.Contains(t, msg, "To: team@flow.test")
	case <-time.After(5 * time.Second):
		t.Fatal("no message reached the server")
	}
}
