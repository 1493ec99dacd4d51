package imapmail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
)

// Config holds the settings for the IMAP mailbox. TLS is on in every real
// deployment; plain connections exist for test servers.
type Config struct {
	Server        string
	Username      string
	Password      string
	Folder        string
	ProcessedFlag string
	TLS           bool
}

// Mailbox reads candidate emails over IMAP. Users flag an email to request
// processing; a custom keyword marks completion, so a message is a candidate
// while it is flagged and not yet keyworded. Implements core.Mailbox.
type Mailbox struct {
	client *client.Client
	cfg    Config
	logger *zap.Logger
}

// NewMailbox connects, authenticates, and selects the configured folder.
func NewMailbox(cfg Config, logger *zap.Logger) (*Mailbox, error) {
	if cfg.Server == "" {
		return nil, core.NewConfigurationError("imap.server", "server address is required")
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.ProcessedFlag == "" {
		cfg.ProcessedFlag = "CRMProcessed"
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	var c *client.Client
	var err error
	if cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, cfg.Server, nil)
	} else {
		c, err = client.DialWithDialer(dialer, cfg.Server)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial IMAP server: %w", err)
	}
	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("IMAP authentication failed: %w", err)
	}
	if _, err := c.Select(cfg.Folder, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select folder %s: %w", cfg.Folder, err)
	}

	logger.Info("IMAP mailbox connected",
		zap.String("server", cfg.Server),
		zap.String("folder", cfg.Folder))
	return &Mailbox{client: c, cfg: cfg, logger: logger}, nil
}

// ListCandidates returns flagged messages that do not yet carry the processed
// keyword, oldest first as the server orders UIDs.
func (m *Mailbox) ListCandidates(ctx context.Context) ([]core.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.FlaggedFlag}
	criteria.WithoutFlags = []string{m.cfg.ProcessedFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}

	refs := make([]core.MessageRef, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, core.MessageRef{ID: strconv.FormatUint(uint64(uid), 10)})
	}
	m.logger.Debug("Candidate messages listed", zap.Int("count", len(refs)))
	return refs, nil
}

// FetchMessage downloads and parses one message by UID.
func (m *Mailbox) FetchMessage(ctx context.Context, id string) (*core.InboundEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", id, core.ErrNotFound)
	}

	return m.parseMessage(id, msg, section)
}

// parseMessage converts a fetched IMAP message into an inbound email, using
// the MIME envelope for the body and attachments and the IMAP envelope for
// headers the MIME parse might miss.
func (m *Mailbox) parseMessage(id string, msg *imap.Message, section *imap.BodySectionName) (*core.InboundEmail, error) {
	email := &core.InboundEmail{MessageID: id}
	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		if msg.Envelope.MessageId != "" {
			email.MessageID = msg.Envelope.MessageId
		}
		if len(msg.Envelope.From) > 0 {
			email.Sender = msg.Envelope.From[0].Address()
		}
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return nil, fmt.Errorf("message %s has no body section", id)
	}

	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIME message %s: %w", id, err)
	}

	email.Body = envelope.Text
	if email.Body == "" {
		email.Body = envelope.HTML
	}
	if email.Sender == "" {
		email.Sender = envelope.GetHeader("From")
	}

	for _, att := range envelope.Attachments {
		if len(att.Content) == 0 {
			m.logger.Warn("Skipping empty attachment",
				zap.String("message_id", email.MessageID),
				zap.String("filename", att.FileName))
			continue
		}
		email.Attachments = append(email.Attachments, core.Attachment{
			Filename: att.FileName,
			Content:  att.Content,
		})
	}

	return email, nil
}

// MarkDone removes the request flag and adds the processed keyword so the
// message never reappears as a candidate.
func (m *Mailbox) MarkDone(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	removeItem := imap.FormatFlagsOp(imap.RemoveFlags, true)
	if err := m.client.UidStore(seqSet, removeItem, []interface{}{imap.FlaggedFlag}, nil); err != nil {
		return fmt.Errorf("failed to clear request flag on %s: %w", id, err)
	}

	addItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqSet, addItem, []interface{}{m.cfg.ProcessedFlag}, nil); err != nil {
		return fmt.Errorf("failed to set processed keyword on %s: %w", id, err)
	}
	return nil
}

// Close logs out of the IMAP session.
func (m *Mailbox) Close() error {
	if m.client != nil {
		return m.client.Logout()
	}
	return nil
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	return uint32(uid), nil
}
