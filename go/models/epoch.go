package models

import (
	"github.com/asjadnft/sui-indexer/go/sui"
)

// EpochInfo is the per-epoch summary row. Event-derived fields are
// nullable: the system epoch event is nominally always emitted at a
// boundary, but a missing event leaves them null rather than failing
// the checkpoint.
type EpochInfo struct {
	Epoch                  int64
	FirstCheckpointID      int64
	LastCheckpointID       *int64
	EpochStartTimestamp    int64
	EpochEndTimestamp      *int64
	EpochTotalTransactions int64
	NextEpochVersion       *int64
	// NextEpochCommittee and NextEpochCommitteeStake are positionally
	// aligned; entries are null at matching positions.
	NextEpochCommittee      [][]byte
	NextEpochCommitteeStake []*int64

	ProtocolVersion              *int64
	ReferenceGasPrice            *int64
	TotalStake                   *int64
	StorageFundReinvestment      *int64
	StorageCharge                *int64
	StorageRebate                *int64
	StorageFundBalance           *int64
	StakeSubsidyAmount           *int64
	TotalGasFees                 *int64
	TotalStakeRewardsDistributed *int64
	LeftoverStorageFundInflow    *int64

	EpochCommitments [][]byte
}

// ApplyEpochEvent copies the event-derived fields onto the row.
func (e *EpochInfo) ApplyEpochEvent(ev *sui.SystemEpochInfoEvent) {
	e.ProtocolVersion = i64ptr(ev.ProtocolVersion)
	e.ReferenceGasPrice = i64ptr(ev.ReferenceGasPrice)
	e.TotalStake = i64ptr(ev.TotalStake)
	e.StorageFundReinvestment = i64ptr(ev.StorageFundReinvestment)
	e.StorageCharge = i64ptr(ev.StorageCharge)
	e.StorageRebate = i64ptr(ev.StorageRebate)
	e.StorageFundBalance = i64ptr(ev.StorageFundBalance)
	e.StakeSubsidyAmount = i64ptr(ev.StakeSubsidyAmount)
	e.TotalGasFees = i64ptr(ev.TotalGasFees)
	e.TotalStakeRewardsDistributed = i64ptr(ev.TotalStakeRewardsDistributed)
	e.LeftoverStorageFundInflow = i64ptr(ev.LeftoverStorageFundInflow)
}

func i64ptr(v sui.Uint64) *int64 {
	var out = int64(v)
	return &out
}

// SystemState is the normalized system-state row captured at an epoch
// boundary.
type SystemState struct {
	Epoch                 int64
	ProtocolVersion       int64
	SystemStateVersion    int64
	StorageFundBalance    int64
	ReferenceGasPrice     int64
	SafeMode              bool
	EpochStartTimestampMs int64
	EpochDurationMs       int64
	TotalStake            int64
	ActiveValidatorCount  int64
}

// NewSystemState flattens a system-state summary.
func NewSystemState(s *sui.SystemStateSummary) SystemState {
	return SystemState{
		Epoch:                 int64(s.Epoch),
		ProtocolVersion:       int64(s.ProtocolVersion),
		SystemStateVersion:    int64(s.SystemStateVersion),
		StorageFundBalance:    int64(s.StorageFundTotalObjectStorageRebates) + int64(s.StorageFundNonRefundableBalance),
		ReferenceGasPrice:     int64(s.ReferenceGasPrice),
		SafeMode:              s.SafeMode,
		EpochStartTimestampMs: int64(s.EpochStartTimestampMs),
		EpochDurationMs:       int64(s.EpochDurationMs),
		TotalStake:            int64(s.TotalStake),
		ActiveValidatorCount:  int64(len(s.ActiveValidators)),
	}
}

// Validator is one active validator keyed by (epoch, address).
type Validator struct {
	Epoch                 int64
	SuiAddress            string
	Name                  string
	Description           string
	ImageURL              string
	ProjectURL            string
	ProtocolPubkeyBytes   string
	NetworkPubkeyBytes    string
	WorkerPubkeyBytes     string
	NetAddress            string
	P2PAddress            string
	PrimaryAddress        string
	WorkerAddress         string
	VotingPower           int64
	GasPrice              int64
	CommissionRate        int64
	NextEpochStake        int64
	NextEpochGasPrice     int64
	NextEpochCommission   int64
	StakingPoolSuiBalance int64
	RewardsPool           int64
	PoolTokenBalance      int64
	PendingStake          int64
}

// NewValidator builds a validator row for the given epoch.
func NewValidator(epoch sui.Uint64, v sui.ValidatorSummary) Validator {
	return Validator{
		Epoch:                 int64(epoch),
		SuiAddress:            v.SuiAddress,
		Name:                  v.Name,
		Description:           v.Description,
		ImageURL:              v.ImageURL,
		ProjectURL:            v.ProjectURL,
		ProtocolPubkeyBytes:   v.ProtocolPubkeyBytes,
		NetworkPubkeyBytes:    v.NetworkPubkeyBytes,
		WorkerPubkeyBytes:     v.WorkerPubkeyBytes,
		NetAddress:            v.NetAddress,
		P2PAddress:            v.P2PAddress,
		PrimaryAddress:        v.PrimaryAddress,
		WorkerAddress:         v.WorkerAddress,
		VotingPower:           int64(v.VotingPower),
		GasPrice:              int64(v.GasPrice),
		CommissionRate:        int64(v.CommissionRate),
		NextEpochStake:        int64(v.NextEpochStake),
		NextEpochGasPrice:     int64(v.NextEpochGasPrice),
		NextEpochCommission:   int64(v.NextEpochCommissionRate),
		StakingPoolSuiBalance: int64(v.StakingPoolSuiBalance),
		RewardsPool:           int64(v.RewardsPool),
		PoolTokenBalance:      int64(v.PoolTokenBalance),
		PendingStake:          int64(v.PendingStake),
	}
}
