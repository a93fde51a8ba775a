package port

import (
	"context"

	"github.com/sentinel-fin/reimbursement-service/internal/domain/entity"
	"github.com/sentinel-fin/reimbursement-service/internal/fraud"
)

// SubmissionRepository persists reimbursement submissions.
type SubmissionRepository interface {
	// Create inserts a PENDING submission and fills in its ID.
	Create(ctx context.Context, submission *entity.Submission) error

	// Finalize writes the scoring outcome and marks the submission COMPLETED.
	Finalize(ctx context.Context, submission *entity.Submission) error

	GetByID(ctx context.Context, id int64) (*entity.Submission, error)
	List(ctx context.Context) ([]*entity.Submission, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Submission, error)
}

// HistoryRepository is the append side of the duplicate-reference history plus
// the read queries the scoring engine needs. Append is called by the
// orchestrator only, never by the engine.
type HistoryRepository interface {
	fraud.HistoryIndex

	Append(ctx context.Context, entry *entity.HistoryEntry) error
}

// TransactionManager runs a function inside a single database transaction.
// Repository calls made with the txCtx it provides join that transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
