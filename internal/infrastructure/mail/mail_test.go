package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

var testMessage = ports.Message{
	Subject: "confirmation_code",
	Body:    "abc123-deadbeef",
	From:    "noreply@yamdb.local",
	To:      []string{"alice@example.com"},
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	if err := m.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["body"] != testMessage.Body || entry["subject"] != testMessage.Subject {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

type failingMailer struct{ err error }

func (f failingMailer) Send(context.Context, ports.Message) error { return f.err }

func TestInstrument_CountsOutcomes(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.MailDeliveriesTotal.WithLabelValues("test", metrics.ResultOK))
	errBefore := testutil.ToFloat64(metrics.MailDeliveriesTotal.WithLabelValues("test", metrics.ResultError))

	if err := Instrument(failingMailer{}, "test", time.Second).Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	boom := errors.New("relay down")
	err := Instrument(failingMailer{err: boom}, "test", time.Second).Send(context.Background(), testMessage)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.MailDeliveriesTotal.WithLabelValues("test", metrics.ResultOK)); got != okBefore+1 {
		t.Errorf("ok count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(metrics.MailDeliveriesTotal.WithLabelValues("test", metrics.ResultError)); got != errBefore+1 {
		t.Errorf("error count = %v, want %v", got, errBefore+1)
	}
}

func TestSMTPMailer_Compose(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	if err != nil {
		t.Fatalf("NewSMTPMailer: %v", err)
	}
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	msg := testMessage
	msg.Subject = "hi\r\nBcc: victim@example.com"
	raw := string(m.compose(msg))

	for _, want := range []string{
		"From: noreply@yamdb.local\r\n",
		"To: alice@example.com\r\n",
		"Subject: hiBcc: victim@example.com\r\n",
		"Date: Wed, 01 May 2024 12:00:00 +0000\r\n",
		"@smtp.example.com>\r\n",
		"\r\n\r\nabc123-deadbeef\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
	if strings.Contains(raw, "\r\nBcc:") {
		t.Error("header injection was not neutralised")
	}
}

// fakeSMTPServer accepts one session and records the DATA payload.
func fakeSMTPServer(t *testing.T) (addr string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch cmd {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250 fake")
			case "MAIL", "RCPT":
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(body)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPMailer_Send(t *testing.T) {
	addr, data := fakeSMTPServer(t)
	host, port, _ := net.SplitHostPort(addr)
	portNum, _ := strconv.Atoi(port)

	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: portNum})
	if err != nil {
		t.Fatalf("NewSMTPMailer: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Send(ctx, testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case body := <-data:
		if !strings.Contains(body, "abc123-deadbeef") {
			t.Fatalf("body not delivered:\n%s", body)
		}
	case <-ctx.Done():
		t.Fatal("server never received DATA")
	}
}

func TestSMTPMailer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	_ = ln.Close()

	portNum, _ := strconv.Atoi(port)
	m, _ := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: portNum})
	if err := m.Send(context.Background(), testMessage); err == nil {
		t.Fatal("expected dial error")
	}
	if _, err := NewSMTPMailer(SMTPConfig{}); err == nil {
		t.Fatal("expected error for missing host")
	}
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestAMQPMailer_Send(t *testing.T) {
	pub := &fakePublisher{}
	m := &AMQPMailer{ch: pub, queue: "yamdb.mail", now: time.Now}

	if err := m.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if pub.exchange != "" || pub.key != "yamdb.mail" {
		t.Fatalf("published to %q/%q", pub.exchange, pub.key)
	}
	if pub.msg.DeliveryMode != amqp.Persistent || pub.msg.ContentType != "application/json" || pub.msg.MessageId == "" {
		t.Fatalf("unexpected publishing %+v", pub.msg)
	}

	var env envelope
	if err := json.Unmarshal(pub.msg.Body, &env); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if env.Body != testMessage.Body || env.To[0] != "alice@example.com" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	pub.err = errors.New("channel closed")
	if err := m.Send(context.Background(), testMessage); err == nil {
		t.Fatal("expected publish error")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close without connection: %v", err)
	}
}
