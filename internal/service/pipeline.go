package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesmaili/alias-sms/internal/auth"
	"github.com/mesmaili/alias-sms/internal/cache"
	"github.com/mesmaili/alias-sms/internal/model"
	"github.com/mesmaili/alias-sms/internal/resolve"
	"github.com/mesmaili/alias-sms/internal/store"
)

// SmsTransport is the outbound SMS capability behind the pipeline.
type SmsTransport interface {
	Send(ctx context.Context, phoneNumber, message string) (remoteMessageID string, err error)
}

// Outcome is what an invocation source gets back from the pipeline.
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeAliasNotFound Outcome = "aliasNotFound"
	OutcomeAuthFailed    Outcome = "authFailed"
	OutcomeAborted       Outcome = "aborted"
)

// Pipeline runs one alias invocation end to end:
// normalize -> lookup -> authenticate -> compose -> send -> log.
// Every error is terminal for the invocation; nothing is retried.
type Pipeline struct {
	aliases store.AliasStore
	logs    store.LogStore
	cache   cache.AliasCache
	auth    auth.Authenticator
	sms     SmsTransport
}

func NewPipeline(aliases store.AliasStore, logs store.LogStore, c cache.AliasCache, a auth.Authenticator, sms SmsTransport) *Pipeline {
	return &Pipeline{
		aliases: aliases,
		logs:    logs,
		cache:   c,
		auth:    a,
		sms:     sms,
	}
}

// Invoke resolves rawAlias and sends the composed message. A nil override
// falls back to the alias's predefined message; a non-nil override wins.
// A transport failure returns a *model.SendError after recording a FAILED
// log entry; that is the only error path that still writes a log record.
func (p *Pipeline) Invoke(ctx context.Context, rawAlias string, override *string) (Outcome, error) {
	key := resolve.Normalize(rawAlias)

	entry, ok, err := p.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		slog.Info("alias not found", "key", key)
		return OutcomeAliasNotFound, nil
	}

	prompt := fmt.Sprintf("Authenticate to send SMS to %s", entry.Alias)
	decision, err := p.auth.Authenticate(ctx, prompt)
	if err != nil {
		slog.Warn("authentication error", "alias", entry.Alias, "err", err)
		return OutcomeAborted, nil
	}
	switch decision {
	case auth.Approved:
	case auth.Denied:
		slog.Info("authentication denied", "alias", entry.Alias)
		return OutcomeAuthFailed, nil
	default:
		slog.Info("authentication cancelled", "alias", entry.Alias)
		return OutcomeAborted, nil
	}

	composed := resolve.Compose(entry, override)

	remoteID, err := p.sms.Send(ctx, entry.PhoneNumber, composed)
	if err != nil {
		reason := err.Error()
		if appendErr := p.logs.Append(ctx, resolve.NewLogEntry(entry, composed, model.Failed, &reason)); appendErr != nil {
			slog.Error("failed to record failed send", "alias", entry.Alias, "err", appendErr)
		}
		return "", &model.SendError{Reason: reason}
	}

	slog.Info("sms sent",
		"alias", entry.Alias,
		"phone", resolve.MaskPhone(entry.PhoneNumber),
		"remote_id", remoteID,
	)

	if err := p.logs.Append(ctx, resolve.NewLogEntry(entry, composed, model.Sent, nil)); err != nil {
		slog.Error("failed to record sent sms", "alias", entry.Alias, "err", err)
	}
	return OutcomeSent, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (model.AliasEntry, bool, error) {
	cached, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("alias cache get failed", "key", key, "err", err)
	} else if ok && cached.NormalizedAlias == key {
		// A renamed alias can linger under its old key until the TTL; the
		// key check makes such hits misses instead.
		return cached, true, nil
	}

	entry, err := p.aliases.FindByNormalizedAlias(ctx, key)
	if errors.Is(err, model.ErrAliasNotFound) {
		return model.AliasEntry{}, false, nil
	}
	if err != nil {
		return model.AliasEntry{}, false, err
	}

	if err := p.cache.Set(ctx, key, entry); err != nil {
		slog.Warn("alias cache set failed", "key", key, "err", err)
	}
	return entry, true, nil
}
