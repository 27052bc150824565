package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartAuditConsumer connects to RabbitMQ, declares the audit.events queue
// and appends every message to <logDir>/audit.log as a single line.  It
// reconnects with backoff until ctx is cancelled, then returns ctx.Err().
// A message that cannot be handled is rejected without requeue.
func StartAuditConsumer(ctx context.Context, url, logDir string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	w := &AuditLogWriter{Dir: logDir}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("audit-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, w, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("audit-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, w *AuditLogWriter, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.Handle(d.Body); err != nil {
				log.Warn("audit-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// AuditLogWriter appends audit messages to audit.log inside Dir.
type AuditLogWriter struct {
	Dir string
	mu  sync.Mutex
}

// Handle decodes body and appends it as one line.
func (w *AuditLogWriter) Handle(body []byte) error {
	var msg AuditEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.EventID == "" || msg.Action == "" {
		return errors.New("audit message missing event_id or action")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(w.Dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(msg)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders msg as a single newline-terminated log line.
// Metadata keys are sorted so lines are stable.
func FormatAuditLine(msg AuditEventMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | event_id=%s | actor_id=%s", msg.OccurredAt, msg.Action, msg.EventID, msg.ActorID)
	if msg.VaultItemID != "" {
		fmt.Fprintf(&b, " | vault_item_id=%s", msg.VaultItemID)
	}
	if msg.TargetUserID != "" {
		fmt.Fprintf(&b, " | target_user_id=%s", msg.TargetUserID)
	}
	keys := make([]string, 0, len(msg.Metadata))
	for k := range msg.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " | %s=%v", k, msg.Metadata[k])
	}
	b.WriteByte('\n')
	return b.String()
}
