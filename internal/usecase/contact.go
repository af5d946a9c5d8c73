package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

const (
	maxContactName    = 200
	maxContactSubject = 300
	maxContactMessage = 5000
)

type ContactUsecase struct {
	repo     ContactRepository
	notifier Notifier
}

func NewContactUsecase(repo ContactRepository, notifier Notifier) *ContactUsecase {
	return &ContactUsecase{repo: repo, notifier: notifier}
}

// Submit stores a message sent through the public contact form.
func (uc *ContactUsecase) Submit(ctx context.Context, msg *models.ContactMessage) error {
	ctx, span := tracer.Start(ctx, "Usecase.Contact.Submit")
	defer span.End()

	msg.ID = ""
	msg.Read = false
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)

	if err := validateContact(msg); err != nil {
		return err
	}
	if err := uc.repo.Create(ctx, msg); err != nil {
		return err
	}

	uc.notify(ctx, portfolio.ActionCreate, msg.ID)
	return nil
}

func (uc *ContactUsecase) List(ctx context.Context, unreadOnly bool) ([]models.ContactMessage, error) {
	return uc.repo.List(ctx, unreadOnly)
}

func (uc *ContactUsecase) MarkRead(ctx context.Context, id string, read bool) error {
	if err := uc.repo.MarkRead(ctx, id, read); err != nil {
		return err
	}
	uc.notify(ctx, portfolio.ActionUpdate, id)
	return nil
}

func (uc *ContactUsecase) Delete(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.notify(ctx, portfolio.ActionDelete, id)
	return nil
}

func (uc *ContactUsecase) notify(ctx context.Context, action portfolio.Action, id string) {
	if uc.notifier == nil {
		return
	}
	uc.notifier.Notify(ctx, portfolio.Event{
		Resource: portfolio.ResourceContact,
		Action:   action,
		IDs:      []string{id},
		At:       time.Now().UTC(),
	})
}

func validateContact(msg *models.ContactMessage) error {
	switch {
	case msg.Name == "":
		return domain.Required("name")
	case msg.Email == "":
		return domain.Required("email")
	case strings.TrimSpace(msg.Message) == "":
		return domain.Required("message")
	}
	if !strings.Contains(msg.Email, "@") {
		return domain.ValidationError{Field: "email", Reason: "is not an email address"}
	}
	if utf8.RuneCountInString(msg.Name) > maxContactName {
		return domain.ValidationError{Field: "name", Reason: "is too long"}
	}
	if utf8.RuneCountInString(msg.Subject) > maxContactSubject {
		return domain.ValidationError{Field: "subject", Reason: "is too long"}
	}
	if utf8.RuneCountInString(msg.Message) > maxContactMessage {
		return domain.ValidationError{Field: "message", Reason: "is too long"}
	}
	return nil
}
