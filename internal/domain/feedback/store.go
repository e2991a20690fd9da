package feedback

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrVoteLimitReached carries the text clients match on ("vote limit").
	ErrVoteLimitReached = fmt.Errorf("vote limit exceeded: an email can vote on at most %d feature requests", MaxVotesPerEmail)
	ErrAlreadyVoted     = errors.New("this email has already voted for this feature request")
	ErrRequestNotFound  = errors.New("feature request not found")
	ErrInvalidEmail     = errors.New("a valid email address is required")
	ErrTitleRequired    = errors.New("title is required")
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NormalizeEmail trims, lower-cases and syntax-checks a voter email.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", ErrInvalidEmail
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, status string) ([]FeatureRequest, error) {
	q := s.db.WithContext(ctx).Model(&FeatureRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var out []FeatureRequest
	if err := q.Order("votes_count DESC").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list feature requests: %w", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, title, description, submitterEmail string) (*FeatureRequest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	fr := &FeatureRequest{
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      StatusOpen,
	}
	if strings.TrimSpace(submitterEmail) != "" {
		e, err := NormalizeEmail(submitterEmail)
		if err != nil {
			return nil, err
		}
		fr.SubmitterEmail = &e
	}

	if err := s.db.WithContext(ctx).Create(fr).Error; err != nil {
		return nil, fmt.Errorf("create feature request: %w", err)
	}
	return fr, nil
}

func (s *Store) VoteCount(ctx context.Context, email string) (int64, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&FeatureVote{}).Where("voter_email = ?", e).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

// VotedRequestIDs lists the requests an email has already backed.
func (s *Store) VotedRequestIDs(ctx context.Context, email string) ([]uint, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&FeatureVote{}).Where("voter_email = ?", e).Pluck("request_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return ids, nil
}

// CastVote is the authoritative cap check. Count, insert and counter bump run
// in one transaction; on PostgreSQL an advisory lock keyed by the email
// serialises concurrent votes from the same voter.
func (s *Store) CastVote(ctx context.Context, requestID uint, email string) (*FeatureRequest, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var out FeatureRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "feature_votes:"+e).Error; err != nil {
				return err
			}
		}

		if err := tx.First(&out, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&FeatureVote{}).
			Where("request_id = ? AND voter_email = ?", requestID, e).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyVoted
		}

		var used int64
		if err := tx.Model(&FeatureVote{}).Where("voter_email = ?", e).Count(&used).Error; err != nil {
			return err
		}
		if used >= MaxVotesPerEmail {
			return ErrVoteLimitReached
		}

		if err := tx.Create(&FeatureVote{RequestID: requestID, VoterEmail: e}).Error; err != nil {
			return err
		}
		if err := tx.Model(&FeatureRequest{}).
			Where("id = ?", requestID).
			UpdateColumn("votes_count", gorm.Expr("votes_count + ?", 1)).Error; err != nil {
			return err
		}
		return tx.First(&out, requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, requestID uint, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	res := s.db.WithContext(ctx).Model(&FeatureRequest{}).Where("id = ?", requestID).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update feature request status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}
