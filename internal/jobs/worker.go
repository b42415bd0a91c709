package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"bujo/internal/logger"

	"gorm.io/gorm"
)

// Sender delivers one message to one address. Implemented by the SMTP mailer.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type Worker struct {
	ID     string
	Repo   *Repo
	DB     *gorm.DB
	Mailer Sender

	// BaseURL is the public app origin used to build accept links.
	BaseURL string
}

type inviteRow struct {
	ID          uint64     `gorm:"column:id"`
	Email       string     `gorm:"column:email"`
	Token       string     `gorm:"column:token"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	SpaceName   string     `gorm:"column:space_name"`
	InviterName string     `gorm:"column:inviter_name"`
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				logger.Error().Err(err).Str("worker", w.ID).Msg("job claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeInviteEmail:
		w.handleInviteEmail(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleInviteEmail(job *Job) {
	type payload struct {
		InviteID uint64 `json:"invite_id"`
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var row inviteRow
	err := w.DB.
		Table("space_invites").
		Select("space_invites.id, space_invites.email, space_invites.token, space_invites.accepted_at, spaces.name as space_name, coalesce(nullif(users.display_name, ''), users.email) as inviter_name").
		Joins("join spaces on spaces.id = space_invites.space_id").
		Joins("join users on users.id = space_invites.invited_by").
		Where("space_invites.id = ?", p.InviteID).
		Scan(&row).Error
	if err != nil {
		w.retry(job, "db read error")
		return
	}
	if row.ID == 0 || row.AcceptedAt != nil {
		// invite gone or already redeemed, nothing to deliver
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	link := fmt.Sprintf("%s/invites/%s", w.BaseURL, row.Token)
	subject, body := inviteMessage(row.SpaceName, row.InviterName, link)

	if err := w.Mailer.Send(row.Email, subject, body); err != nil {
		w.retry(job, err.Error())
		return
	}

	logger.Info().Uint64("invite", row.ID).Str("to", row.Email).Msg("invite email sent")
	_ = w.Repo.MarkDone(job.ID)
}

func inviteMessage(spaceName, inviterName, link string) (subject, body string) {
	subject = fmt.Sprintf("You've been invited to %q", spaceName)
	body = fmt.Sprintf(`<html><body style="font-family: sans-serif; line-height: 1.6;">
<h2>You've been invited to %s</h2>
<p>%s has invited you to join their space.</p>
<p><a href="%s">Accept invitation</a></p>
<p style="font-size: 12px; color: #888;">If you didn't expect this invitation, you can ignore this email.</p>
</body></html>`, spaceName, inviterName, link)
	return subject, body
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
