package bidding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

const intermediaryLinkConstraint = "order_intermediary_links_order_id_key"

var (
	minRatePercent = decimal.Zero
	maxRatePercent = decimal.NewFromInt(30)
	percentBase    = decimal.NewFromInt(100)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the intermediary bidding operations.
type Service interface {
	Apply(ctx context.Context, urlID uuid.UUID, username, ratePercent string) error
	ListCandidates(ctx context.Context, urlID uuid.UUID, username string) ([]CandidateView, error)
	Select(ctx context.Context, urlID uuid.UUID, callerUsername, chosenUsername string) (*SelectionResult, error)
	ListOpenRequests(ctx context.Context, params pagination.Params) (*RequestList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	advancer StatusAdvancer
	logg     *logger.Logger
}

// NewService builds the bidding service with the required dependencies.
func NewService(repo Repository, tx txRunner, advancer StatusAdvancer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if advancer == nil {
		return nil, fmt.Errorf("status advancer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		advancer: advancer,
		logg:     logg,
	}, nil
}

// Apply records a bid on an open order. The rate arrives as a percent and is
// stored as a fraction at three decimal places.
func (s *service) Apply(ctx context.Context, urlID uuid.UUID, username, ratePercent string) error {
	rate, err := parseRate(ratePercent)
	if err != nil {
		return err
	}

	order, err := s.findOrder(ctx, urlID)
	if err != nil {
		return err
	}

	if order.CustomerLink != nil && order.CustomerLink.Customer.Username == username {
		return pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot bid on their own orders")
	}
	if order.Status.Step != models.StepFindingIntermediary {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not accepting bids")
	}

	user, err := s.findUser(ctx, username)
	if err != nil {
		return err
	}

	if _, err := s.repo.FindCandidate(ctx, order.ID, user.ID); err == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bid already placed")
	} else if err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing bid")
	}

	candidate := &models.OrderIntermediaryCandidate{
		OrderID: order.ID,
		UserID:  user.ID,
		Rate:    rate,
	}
	if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
		if db.IsUniqueViolation(err, "idx_candidates_order_user") {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid already placed")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
	}
	return nil
}

// ListCandidates returns the order's bids with each bidder's historical
// review aggregates, preserving application order.
func (s *service) ListCandidates(ctx context.Context, urlID uuid.UUID, username string) ([]CandidateView, error) {
	order, err := s.findOrder(ctx, urlID)
	if err != nil {
		return nil, err
	}
	if order.CustomerLink == nil || order.CustomerLink.Customer.Username != username {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}

	rows, err := s.repo.ListCandidates(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list candidates")
	}

	views := make([]CandidateView, 0, len(rows))
	for _, row := range rows {
		views = append(views, CandidateView{
			Username:      row.Username,
			Rate:          row.Rate,
			AverageRating: row.AverageRating,
			ReviewCount:   row.ReviewCount,
			AppliedAt:     row.CreatedAt,
		})
	}
	return views, nil
}

// Select assigns the chosen candidate as the order's intermediary and
// advances the order, atomically. A concurrent selection loses on the unique
// order_id constraint and surfaces as a state conflict.
func (s *service) Select(ctx context.Context, urlID uuid.UUID, callerUsername, chosenUsername string) (*SelectionResult, error) {
	var result *SelectionResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByURLID(ctx, urlID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.CustomerLink == nil || order.CustomerLink.Customer.Username != callerUsername {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can select an intermediary")
		}
		if order.IntermediaryLink != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "intermediary already assigned")
		}
		if order.Status.Step != models.StepFindingIntermediary {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not accepting selections")
		}

		chosen, err := repo.FindUserByUsername(ctx, chosenUsername)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "candidate not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate user")
		}
		if _, err := repo.FindCandidate(ctx, order.ID, chosen.ID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "candidate not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate")
		}

		link := &models.OrderIntermediaryLink{OrderID: order.ID, IntermediaryID: chosen.ID}
		if err := repo.CreateIntermediaryLink(ctx, link); err != nil {
			if db.IsUniqueViolation(err, intermediaryLinkConstraint) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "intermediary already assigned")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign intermediary")
		}

		if err := s.advancer.AdvanceTx(ctx, tx, order.ID); err != nil {
			return err
		}

		next, err := repo.FindOrderByURLID(ctx, urlID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}

		result = &SelectionResult{
			URLID:        next.URLID,
			Status:       next.Status.Name,
			Step:         next.Status.Step,
			Customer:     callerUsername,
			Intermediary: chosenUsername,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListOpenRequests(ctx context.Context, params pagination.Params) (*RequestList, error) {
	list, err := s.repo.ListOpenRequests(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open requests")
	}
	return list, nil
}

func (s *service) findOrder(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByURLID(ctx, urlID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) findUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func parseRate(ratePercent string) (decimal.Decimal, error) {
	percent, err := decimal.NewFromString(ratePercent)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid rate")
	}
	if percent.LessThan(minRatePercent) || percent.GreaterThan(maxRatePercent) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "rate must be between 0 and 30 percent")
	}
	return percent.DivRound(percentBase, 3), nil
}
