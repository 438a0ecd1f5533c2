package in

import (
	"context"

	"buildorite/internal/trip/domain"
)

// ReportIssueInput — водитель останавливает рейс из-за проблемы
type ReportIssueInput struct {
	TripID  string
	ActorID string
	Role    domain.Role
	Reason  domain.IssueReason
	Notes   string
}

// ReportIssueUseCase — интерфейс use case сообщения о проблеме
type ReportIssueUseCase interface {
	Execute(ctx context.Context, input ReportIssueInput) (*TripView, error)
}
