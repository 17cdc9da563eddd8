package reports

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phishguard/phishguard-api/internal/features/events"
	"github.com/phishguard/phishguard-api/internal/features/ledger"
	"github.com/phishguard/phishguard-api/internal/features/reputation"
	"github.com/phishguard/phishguard-api/internal/features/validators"
	"github.com/phishguard/phishguard-api/internal/pkg/locks"
	"github.com/phishguard/phishguard-api/internal/pkg/logger"
	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, report *Report) error
	Get(ctx context.Context, id primitive.ObjectID) (*Report, error)
	List(ctx context.Context, query ListQuery, offset, limit int) ([]Report, int64, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Report, error)
	InsertVote(ctx context.Context, vote *Vote) error
	HasVote(ctx context.Context, reportID primitive.ObjectID, validator string) (bool, error)
	VotesByReport(ctx context.Context, reportID primitive.ObjectID) ([]Vote, error)
	ApplyVote(ctx context.Context, id primitive.ObjectID, version int64, approve bool) error
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to string) error
	InsertDispute(ctx context.Context, dispute *Dispute) error
	DisputesByReport(ctx context.Context, reportID primitive.ObjectID) ([]Dispute, error)
}

// Ledger moves value for stakes, rewards and slashing. Implemented by
// the ledger service.
type Ledger interface {
	LockStake(ctx context.Context, owner string, amount int64, kind ledger.StakeKind) (*ledger.Stake, error)
	ReleaseStake(ctx context.Context, stakeID string) (int64, error)
	ForfeitStake(ctx context.Context, stakeID string) (int64, error)
	Credit(ctx context.Context, address string, amount int64) error
	PayReward(ctx context.Context, address string, amount int64) error
	PoolCredit(ctx context.Context, amount int64) error
}

// Reputation applies outcome deltas and derived-field refreshes.
type Reputation interface {
	ProfileOf(ctx context.Context, address string) (*reputation.Profile, error)
	AdjustBase(ctx context.Context, address string, delta int64, correct bool) error
	Recompute(ctx context.Context, address string) error
	RecordSubmission(ctx context.Context, address string) error
	RecordVoteCast(ctx context.Context, address string) error
	RecordSlashing(ctx context.Context, address string) error
}

// Registry is the validator registry gate for voting.
type Registry interface {
	Get(ctx context.Context, address string) (*validators.Validator, error)
	RecordOutcome(ctx context.Context, address string, correct bool) error
}

// Blacklist answers whether a target is already confirmed malicious.
type Blacklist interface {
	Contains(ctx context.Context, value string) (bool, error)
}

// Limiter throttles report submissions per account. Remaining is a
// non-consuming check; Allow records the event.
type Limiter interface {
	Allow(key string) bool
	Remaining(key string) int
}

// EventSink receives one event per report state transition.
type EventSink interface {
	Publish(ctx context.Context, eventType, subjectID, actor string, payload map[string]interface{})
}

// Params are the consensus knobs, lifted from config at wiring time.
type Params struct {
	ReportStake     int64
	VotingStake     int64
	ReporterReward  int64
	ValidatorReward int64
	MinValidators   int
	VotingPeriod    time.Duration
	DisputeWindow   time.Duration
	ReportFloor     int64
	StakeFloor      int64
}

// Service implements the report consensus engine: stake-backed
// submission, quorum voting with synchronous finalization, settlement
// (rewards and slashing), lazy expiry refunds and the dispute log.
//
// Every multi-step mutation of a report runs under a per-report keyed
// lock; the store's compare-and-set updates are the backstop if another
// process touches the same document.
type Service struct {
	store      Store
	ledger     Ledger
	reputation Reputation
	registry   Registry
	blacklist  Blacklist
	limiter    Limiter
	events     EventSink
	locks      *locks.Keyed
	params     Params
	now        func() time.Time
}

func NewService(store Store, led Ledger, rep Reputation, reg Registry, bl Blacklist, limiter Limiter, sink EventSink, params Params) *Service {
	return &Service{
		store:      store,
		ledger:     led,
		reputation: rep,
		registry:   reg,
		blacklist:  bl,
		limiter:    limiter,
		events:     sink,
		locks:      locks.NewKeyed(),
		params:     params,
		now:        time.Now,
	}
}

// Submit creates a pending report backed by the submitter's stake. The
// stake is the last step before insert, so every earlier failure leaves
// the ledger untouched. The per-submitter lock serializes the rate-limit
// check against the recording after insert: a submission that fails on
// funds or a storage race never consumes a window slot.
func (s *Service) Submit(ctx context.Context, submitter string, req *SubmitRequest) (*Report, error) {
	if err := ValidateSubmitRequest(req); err != nil {
		return nil, err
	}

	s.locks.Lock("submitter:" + submitter)
	defer s.locks.Unlock("submitter:" + submitter)

	profile, err := s.reputation.ProfileOf(ctx, submitter)
	if err != nil {
		return nil, err
	}
	// Both floors gate on earned (base) reputation: points derived from
	// active stakes cannot buy submission rights.
	if profile.BaseReputation < s.params.ReportFloor {
		return nil, fmt.Errorf("%w: base reputation %d below submission floor %d",
			errs.ErrPrecondition, profile.BaseReputation, s.params.ReportFloor)
	}
	if profile.BaseReputation < s.params.StakeFloor {
		return nil, fmt.Errorf("%w: base reputation %d below staking floor %d",
			errs.ErrPrecondition, profile.BaseReputation, s.params.StakeFloor)
	}

	listed, err := s.blacklist.Contains(ctx, req.TargetValue)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, fmt.Errorf("%w: target is already blacklisted", errs.ErrPrecondition)
	}

	if s.limiter.Remaining(submitter) == 0 {
		return nil, fmt.Errorf("%w: submission rate limit reached", errs.ErrPrecondition)
	}

	stake, err := s.ledger.LockStake(ctx, submitter, s.params.ReportStake, ledger.KindReport)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &Report{
		Type:           req.Type,
		TargetValue:    req.TargetValue,
		Description:    req.Description,
		EvidenceRef:    req.EvidenceRef,
		Submitter:      submitter,
		StakeID:        stake.ID,
		StakeAmount:    stake.Amount,
		Status:         StatusPending,
		CreatedAt:      now,
		VotingDeadline: now.Add(s.params.VotingPeriod),
	}
	if err := s.store.Insert(ctx, report); err != nil {
		if _, rbErr := s.ledger.ReleaseStake(ctx, stake.ID); rbErr != nil {
			logger.Error("reports: rollback of stake %s failed: %v", stake.ID, rbErr)
		}
		return nil, err
	}

	// Consume the window slot only now that the report exists.
	s.limiter.Allow(submitter)

	if err := s.reputation.RecordSubmission(ctx, submitter); err != nil {
		logger.Error("reports: recording submission for %s: %v", submitter, err)
	}
	if err := s.reputation.Recompute(ctx, submitter); err != nil {
		logger.Error("reports: recomputing reputation for %s: %v", submitter, err)
	}

	s.events.Publish(ctx, events.TypeReportSubmitted, report.ID.Hex(), submitter, map[string]interface{}{
		"type":   report.Type,
		"target": report.TargetValue,
		"stake":  report.StakeAmount,
	})
	return report, nil
}

// Get returns a report, expiring it first if its deadline has lapsed.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Report, error) {
	s.locks.Lock("report:" + id.Hex())
	defer s.locks.Unlock("report:" + id.Hex())

	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.expireIfDue(ctx, report)
}

// List returns reports matching the query.
func (s *Service) List(ctx context.Context, query ListQuery, offset, limit int) ([]Report, int64, error) {
	return s.store.List(ctx, query, offset, limit)
}

// Votes returns the votes cast on a report.
func (s *Service) Votes(ctx context.Context, id primitive.ObjectID) ([]Vote, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.VotesByReport(ctx, id)
}

// Disputes returns the disputes raised on a report.
func (s *Service) Disputes(ctx context.Context, id primitive.ObjectID) ([]Dispute, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.DisputesByReport(ctx, id)
}

// Vote records a validator's verdict. Reaching quorum finalizes the
// report synchronously in the same call, so the voter that tips the
// count also settles stakes, rewards and reputation.
func (s *Service) Vote(ctx context.Context, voter string, id primitive.ObjectID, verdict string) (*Report, error) {
	approve := verdict == VerdictValid
	if !approve && verdict != VerdictInvalid {
		return nil, fmt.Errorf("%w: verdict must be %q or %q", errs.ErrValidation, VerdictValid, VerdictInvalid)
	}

	s.locks.Lock("report:" + id.Hex())
	defer s.locks.Unlock("report:" + id.Hex())

	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err = s.expireIfDue(ctx, report)
	if err != nil {
		return nil, err
	}
	if report.Status != StatusPending {
		return nil, fmt.Errorf("%w: report is %s, voting closed", errs.ErrPrecondition, report.Status)
	}
	if report.Submitter == voter {
		return nil, fmt.Errorf("%w: submitter cannot vote on own report", errs.ErrPrecondition)
	}

	v, err := s.registry.Get(ctx, voter)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a registered validator", errs.ErrPrecondition, voter)
	}
	if !v.Active {
		return nil, fmt.Errorf("%w: validator %s is deactivated", errs.ErrPrecondition, voter)
	}

	voted, err := s.store.HasVote(ctx, id, voter)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, fmt.Errorf("%w: %s already voted on report %s", errs.ErrPrecondition, voter, id.Hex())
	}

	if err := s.checkStakeFloor(ctx, voter); err != nil {
		return nil, err
	}

	stake, err := s.ledger.LockStake(ctx, voter, s.params.VotingStake, ledger.KindVote)
	if err != nil {
		return nil, err
	}

	vote := &Vote{
		ReportID:  id,
		Validator: voter,
		Approve:   approve,
		StakeID:   stake.ID,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		if _, rbErr := s.ledger.ReleaseStake(ctx, stake.ID); rbErr != nil {
			logger.Error("reports: rollback of vote stake %s failed: %v", stake.ID, rbErr)
		}
		return nil, err
	}

	if err := s.store.ApplyVote(ctx, id, report.Version, approve); err != nil {
		return nil, err
	}

	if err := s.reputation.RecordVoteCast(ctx, voter); err != nil {
		logger.Error("reports: recording vote for %s: %v", voter, err)
	}
	if err := s.reputation.Recompute(ctx, voter); err != nil {
		logger.Error("reports: recomputing reputation for %s: %v", voter, err)
	}

	s.events.Publish(ctx, events.TypeReportVote, id.Hex(), voter, map[string]interface{}{
		"verdict": verdict,
		"stake":   stake.Amount,
	})

	report, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.VoterCount >= s.params.MinValidators {
		outcome := StatusRejected
		if report.ValidVotes > report.InvalidVotes {
			outcome = StatusValidated
		}
		if err := s.finalize(ctx, report, outcome, voter); err != nil {
			return nil, err
		}
		return s.store.Get(ctx, id)
	}
	return report, nil
}

// Dispute logs an objection against a report within the dispute window.
func (s *Service) Dispute(ctx context.Context, disputer string, id primitive.ObjectID, reason string) (*Dispute, error) {
	s.locks.Lock("report:" + id.Hex())
	defer s.locks.Unlock("report:" + id.Hex())

	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Submitter == disputer {
		return nil, fmt.Errorf("%w: submitter cannot dispute own report", errs.ErrPrecondition)
	}
	if s.now().After(report.CreatedAt.Add(s.params.DisputeWindow)) {
		return nil, fmt.Errorf("%w: dispute window closed", errs.ErrPrecondition)
	}

	dispute := &Dispute{
		ReportID:  id,
		Disputer:  disputer,
		Reason:    reason,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertDispute(ctx, dispute); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeReportDisputed, id.Hex(), disputer, map[string]interface{}{
		"reason": reason,
	})
	return dispute, nil
}

// ForceFinalize resolves a stuck pending report to the given outcome
// regardless of quorum (admin recovery).
func (s *Service) ForceFinalize(ctx context.Context, id primitive.ObjectID, outcome, reason string) (*Report, error) {
	if outcome != StatusValidated && outcome != StatusRejected {
		return nil, fmt.Errorf("%w: outcome must be %s or %s", errs.ErrValidation, StatusValidated, StatusRejected)
	}

	s.locks.Lock("report:" + id.Hex())
	defer s.locks.Unlock("report:" + id.Hex())

	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != StatusPending {
		return nil, fmt.Errorf("%w: report is already %s", errs.ErrPrecondition, report.Status)
	}

	if err := s.finalize(ctx, report, outcome, "admin"); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeAdminAction, id.Hex(), "admin", map[string]interface{}{
		"action":  "force_finalize",
		"outcome": outcome,
		"reason":  reason,
	})
	return s.store.Get(ctx, id)
}

// Refund expires a pending report and returns every stake in full
// (admin recovery).
func (s *Service) Refund(ctx context.Context, id primitive.ObjectID, reason string) (*Report, error) {
	s.locks.Lock("report:" + id.Hex())
	defer s.locks.Unlock("report:" + id.Hex())

	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != StatusPending {
		return nil, fmt.Errorf("%w: report is already %s", errs.ErrPrecondition, report.Status)
	}

	if err := s.expire(ctx, report); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.TypeAdminAction, id.Hex(), "admin", map[string]interface{}{
		"action": "refund",
		"reason": reason,
	})
	return s.store.Get(ctx, id)
}

// ExpireDue sweeps pending reports past their deadline. The per-request
// lazy path already expires reports as they are touched; this is the
// periodic backstop for reports nobody reads. Batches repeat until no
// due report remains, so a backlog larger than one page is still fully
// swept.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	var expired int
	for {
		due, err := s.store.ListDue(ctx, s.now(), 100)
		if err != nil {
			return expired, err
		}
		if len(due) == 0 {
			return expired, nil
		}

		progressed := false
		for i := range due {
			report := &due[i]
			s.locks.Lock("report:" + report.ID.Hex())
			fresh, err := s.store.Get(ctx, report.ID)
			if err == nil && fresh.Status == StatusPending {
				if err := s.expire(ctx, fresh); err != nil {
					logger.Error("reports: expiring %s: %v", report.ID.Hex(), err)
				} else {
					expired++
					progressed = true
				}
			}
			s.locks.Unlock("report:" + report.ID.Hex())
		}
		if !progressed {
			return expired, nil
		}
	}
}

// expireIfDue transitions a pending report past its deadline to expired
// and refunds all stakes. Caller holds the report lock.
func (s *Service) expireIfDue(ctx context.Context, report *Report) (*Report, error) {
	if report.Status != StatusPending || !s.now().After(report.VotingDeadline) {
		return report, nil
	}
	if err := s.expire(ctx, report); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, report.ID)
}

// expire moves a pending report to expired and returns every stake in
// full: below-quorum reports are a no-fault outcome, nobody is slashed
// and nobody is rewarded. Caller holds the report lock.
func (s *Service) expire(ctx context.Context, report *Report) error {
	if err := s.store.TransitionStatus(ctx, report.ID, StatusPending, StatusExpired); err != nil {
		return err
	}

	s.releaseQuiet(ctx, report.StakeID)
	s.recomputeQuiet(ctx, report.Submitter)

	votes, err := s.store.VotesByReport(ctx, report.ID)
	if err != nil {
		return err
	}
	for _, vote := range votes {
		s.releaseQuiet(ctx, vote.StakeID)
		s.recomputeQuiet(ctx, vote.Validator)
	}

	s.events.Publish(ctx, events.TypeReportExpired, report.ID.Hex(), report.Submitter, map[string]interface{}{
		"votes": len(votes),
	})
	return nil
}

// finalize transitions a pending report to its terminal outcome and
// settles all stakes, rewards and reputation. The status transition is
// the exactly-once gate: it happens first, so a crash mid-settlement
// never finalizes twice. Caller holds the report lock.
func (s *Service) finalize(ctx context.Context, report *Report, outcome, actor string) error {
	if err := s.store.TransitionStatus(ctx, report.ID, StatusPending, outcome); err != nil {
		return err
	}

	votes, err := s.store.VotesByReport(ctx, report.ID)
	if err != nil {
		return err
	}

	validated := outcome == StatusValidated
	if validated {
		s.settleValidated(ctx, report, votes)
	} else {
		s.settleRejected(ctx, report, votes)
	}

	for _, vote := range votes {
		correct := vote.Approve == validated
		if err := s.registry.RecordOutcome(ctx, vote.Validator, correct); err != nil {
			logger.Error("reports: recording outcome for %s: %v", vote.Validator, err)
		}
		delta := int64(1)
		if !correct {
			delta = -1
		}
		if err := s.reputation.AdjustBase(ctx, vote.Validator, delta, correct); err != nil {
			logger.Error("reports: adjusting reputation for %s: %v", vote.Validator, err)
		}
	}

	eventType := events.TypeReportRejected
	if validated {
		eventType = events.TypeReportValidated
	}
	s.events.Publish(ctx, eventType, report.ID.Hex(), actor, map[string]interface{}{
		"validVotes":   report.ValidVotes,
		"invalidVotes": report.InvalidVotes,
		"target":       report.TargetValue,
	})
	return nil
}

// settleValidated pays the submitter and the validators who voted
// valid; every stake returns in full.
func (s *Service) settleValidated(ctx context.Context, report *Report, votes []Vote) {
	s.releaseQuiet(ctx, report.StakeID)
	if err := s.ledger.PayReward(ctx, report.Submitter, s.params.ReporterReward); err != nil {
		logger.Error("reports: paying reporter reward to %s: %v", report.Submitter, err)
	}
	if err := s.reputation.AdjustBase(ctx, report.Submitter, 1, true); err != nil {
		logger.Error("reports: adjusting reputation for %s: %v", report.Submitter, err)
	}

	for _, vote := range votes {
		s.releaseQuiet(ctx, vote.StakeID)
		if vote.Approve {
			if err := s.ledger.PayReward(ctx, vote.Validator, s.params.ValidatorReward); err != nil {
				logger.Error("reports: paying validator reward to %s: %v", vote.Validator, err)
			}
		}
	}
}

// settleRejected slashes the submitter's stake and splits it evenly
// among the validators who voted invalid, remainder to the pool. Voter
// stakes return in full either way.
func (s *Service) settleRejected(ctx context.Context, report *Report, votes []Vote) {
	forfeited, err := s.ledger.ForfeitStake(ctx, report.StakeID)
	if err != nil {
		// Already withdrawn early; there is nothing to slash.
		logger.Warn("reports: stake %s not forfeitable: %v", report.StakeID, err)
		forfeited = 0
	}

	var slashed []string
	for _, vote := range votes {
		s.releaseQuiet(ctx, vote.StakeID)
		if !vote.Approve {
			slashed = append(slashed, vote.Validator)
		}
	}

	if forfeited > 0 {
		if len(slashed) > 0 {
			share := forfeited / int64(len(slashed))
			remainder := forfeited - share*int64(len(slashed))
			for _, addr := range slashed {
				if share > 0 {
					if err := s.ledger.Credit(ctx, addr, share); err != nil {
						logger.Error("reports: crediting slash share to %s: %v", addr, err)
					}
				}
			}
			if err := s.ledger.PoolCredit(ctx, remainder); err != nil {
				logger.Error("reports: crediting slash remainder to pool: %v", err)
			}
		} else {
			if err := s.ledger.PoolCredit(ctx, forfeited); err != nil {
				logger.Error("reports: crediting forfeited stake to pool: %v", err)
			}
		}
	}

	if err := s.reputation.AdjustBase(ctx, report.Submitter, -2, false); err != nil {
		logger.Error("reports: adjusting reputation for %s: %v", report.Submitter, err)
	}
	if err := s.reputation.RecordSlashing(ctx, report.Submitter); err != nil {
		logger.Error("reports: recording slashing for %s: %v", report.Submitter, err)
	}
}

// releaseQuiet returns a stake, tolerating one that is already inactive
// (early withdrawal raced the settlement).
// checkStakeFloor gates stake locking on earned reputation.
func (s *Service) checkStakeFloor(ctx context.Context, address string) error {
	profile, err := s.reputation.ProfileOf(ctx, address)
	if err != nil {
		return err
	}
	if profile.BaseReputation < s.params.StakeFloor {
		return fmt.Errorf("%w: base reputation %d below staking floor %d",
			errs.ErrPrecondition, profile.BaseReputation, s.params.StakeFloor)
	}
	return nil
}

func (s *Service) releaseQuiet(ctx context.Context, stakeID string) {
	if _, err := s.ledger.ReleaseStake(ctx, stakeID); err != nil {
		logger.Warn("reports: stake %s not released: %v", stakeID, err)
	}
}

func (s *Service) recomputeQuiet(ctx context.Context, address string) {
	if err := s.reputation.Recompute(ctx, address); err != nil {
		logger.Error("reports: recomputing reputation for %s: %v", address, err)
	}
}
