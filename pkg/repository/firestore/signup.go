package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
	"github.com/secmon-lab/switchboard/pkg/domain/model"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type signupRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SignupRepository = &signupRepository{}

func newSignupRepository(client *firestore.Client) *signupRepository {
	return &signupRepository{
		client: client,
	}
}

func (r *signupRepository) doc(id types.CustomerID) *firestore.DocumentRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "signups")).Doc(customerDocID(id))
}

func (r *signupRepository) Put(ctx context.Context, report *model.SignupReport) error {
	if report == nil {
		return goerr.New("signup report is nil")
	}

	if _, err := r.doc(report.CustomerID).Set(ctx, report); err != nil {
		return goerr.Wrap(err, "failed to put signup report", goerr.V("customer_id", report.CustomerID))
	}
	return nil
}

func (r *signupRepository) Get(ctx context.Context, id types.CustomerID) (*model.SignupReport, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get signup report", goerr.V("customer_id", id))
	}

	var report model.SignupReport
	if err := doc.DataTo(&report); err != nil {
		return nil, goerr.Wrap(err, "failed to decode signup report", goerr.V("customer_id", id))
	}
	return &report, nil
}

func (r *signupRepository) MarkStep(ctx context.Context, id types.CustomerID, step types.SignupStepName, stepStatus types.SignupStepStatus, stepErr error, now time.Time) error {
	ref := r.doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return interfaces.ErrNotFound
			}
			return goerr.Wrap(err, "failed to get signup report")
		}

		var report model.SignupReport
		if err := doc.DataTo(&report); err != nil {
			return goerr.Wrap(err, "failed to decode signup report")
		}

		report.Mark(step, stepStatus, stepErr, now)
		return tx.Set(ref, &report)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark signup step",
			goerr.V("customer_id", id),
			goerr.V("step", step),
		)
	}
	return nil
}
