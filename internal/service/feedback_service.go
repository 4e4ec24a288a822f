package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rmi/internal/domain"
	"rmi/internal/repository"
)

var ErrEmptyFeedback = errors.New("feedback text is empty")

type FeedbackService struct {
	repo repository.FeedbackRepository
	now  func() time.Time
}

func NewFeedbackService(repo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo, now: time.Now}
}

func (s *FeedbackService) Submit(ctx context.Context, userID, text string) (domain.Feedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Feedback{}, ErrEmptyFeedback
	}
	fb := domain.Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return domain.Feedback{}, fmt.Errorf("create feedback: %w", err)
	}
	return fb, nil
}
