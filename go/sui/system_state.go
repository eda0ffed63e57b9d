package sui

import (
	"encoding/json"
	"fmt"
)

// ValidatorSummary is one active validator of the system-state summary.
type ValidatorSummary struct {
	SuiAddress              string `json:"suiAddress"`
	ProtocolPubkeyBytes     string `json:"protocolPubkeyBytes"`
	NetworkPubkeyBytes      string `json:"networkPubkeyBytes"`
	WorkerPubkeyBytes       string `json:"workerPubkeyBytes"`
	Name                    string `json:"name"`
	Description             string `json:"description"`
	ImageURL                string `json:"imageUrl"`
	ProjectURL              string `json:"projectUrl"`
	NetAddress              string `json:"netAddress"`
	P2PAddress              string `json:"p2pAddress"`
	PrimaryAddress          string `json:"primaryAddress"`
	WorkerAddress           string `json:"workerAddress"`
	VotingPower             Uint64 `json:"votingPower"`
	OperationCapID          string `json:"operationCapId"`
	GasPrice                Uint64 `json:"gasPrice"`
	CommissionRate          Uint64 `json:"commissionRate"`
	NextEpochStake          Uint64 `json:"nextEpochStake"`
	NextEpochGasPrice       Uint64 `json:"nextEpochGasPrice"`
	NextEpochCommissionRate Uint64 `json:"nextEpochCommissionRate"`
	StakingPoolID           string `json:"stakingPoolId"`
	StakingPoolSuiBalance   Uint64 `json:"stakingPoolSuiBalance"`
	RewardsPool             Uint64 `json:"rewardsPool"`
	PoolTokenBalance        Uint64 `json:"poolTokenBalance"`
	PendingStake            Uint64 `json:"pendingStake"`
}

// SystemStateSummary is the JSON summary of the on-chain system state,
// as returned by suix_getLatestSuiSystemState.
type SystemStateSummary struct {
	Epoch                                 Uint64             `json:"epoch"`
	ProtocolVersion                       Uint64             `json:"protocolVersion"`
	SystemStateVersion                    Uint64             `json:"systemStateVersion"`
	StorageFundTotalObjectStorageRebates  Uint64             `json:"storageFundTotalObjectStorageRebates"`
	StorageFundNonRefundableBalance       Uint64             `json:"storageFundNonRefundableBalance"`
	ReferenceGasPrice                     Uint64             `json:"referenceGasPrice"`
	SafeMode                              bool               `json:"safeMode"`
	EpochStartTimestampMs                 Uint64             `json:"epochStartTimestampMs"`
	EpochDurationMs                       Uint64             `json:"epochDurationMs"`
	StakeSubsidyStartEpoch                Uint64             `json:"stakeSubsidyStartEpoch"`
	MaxValidatorCount                     Uint64             `json:"maxValidatorCount"`
	MinValidatorJoiningStake              Uint64             `json:"minValidatorJoiningStake"`
	ValidatorLowStakeThreshold            Uint64             `json:"validatorLowStakeThreshold"`
	ValidatorVeryLowStakeThreshold        Uint64             `json:"validatorVeryLowStakeThreshold"`
	ValidatorLowStakeGracePeriod          Uint64             `json:"validatorLowStakeGracePeriod"`
	StakeSubsidyBalance                   Uint64             `json:"stakeSubsidyBalance"`
	StakeSubsidyDistributionCounter       Uint64             `json:"stakeSubsidyDistributionCounter"`
	StakeSubsidyCurrentDistributionAmount Uint64             `json:"stakeSubsidyCurrentDistributionAmount"`
	StakeSubsidyPeriodLength              Uint64             `json:"stakeSubsidyPeriodLength"`
	StakeSubsidyDecreaseRate              Uint64             `json:"stakeSubsidyDecreaseRate"`
	TotalStake                            Uint64             `json:"totalStake"`
	ActiveValidators                      []ValidatorSummary `json:"activeValidators"`
	PendingActiveValidatorsSize           Uint64             `json:"pendingActiveValidatorsSize"`
	PendingRemovals                       []Uint64           `json:"pendingRemovals,omitempty"`
	ValidatorCandidatesSize               Uint64             `json:"validatorCandidatesSize"`
}

// SystemEpochInfoEvent is the epoch-change event emitted by the system
// module, decoded from the event's parsedJson payload.
type SystemEpochInfoEvent struct {
	Epoch                        Uint64 `json:"epoch"`
	ProtocolVersion              Uint64 `json:"protocol_version"`
	ReferenceGasPrice            Uint64 `json:"reference_gas_price"`
	TotalStake                   Uint64 `json:"total_stake"`
	StorageFundReinvestment      Uint64 `json:"storage_fund_reinvestment"`
	StorageCharge                Uint64 `json:"storage_charge"`
	StorageRebate                Uint64 `json:"storage_rebate"`
	StorageFundBalance           Uint64 `json:"storage_fund_balance"`
	StakeSubsidyAmount           Uint64 `json:"stake_subsidy_amount"`
	TotalGasFees                 Uint64 `json:"total_gas_fees"`
	TotalStakeRewardsDistributed Uint64 `json:"total_stake_rewards_distributed"`
	LeftoverStorageFundInflow    Uint64 `json:"leftover_storage_fund_inflow"`
}

const (
	systemEpochInfoModule = "sui_system_state_inner"
	systemEpochInfoName   = "SystemEpochInfoEvent"
)

// IsSystemEpochInfoEvent reports whether the event is the system
// module's epoch-change event.
func IsSystemEpochInfoEvent(e *Event) bool {
	var addr, module, name = e.TypeParts()
	return AddressEq(addr, SystemAddress) &&
		module == systemEpochInfoModule &&
		name == systemEpochInfoName
}

// ParseSystemEpochInfoEvent decodes the event payload.
func ParseSystemEpochInfoEvent(e *Event) (*SystemEpochInfoEvent, error) {
	if len(e.ParsedJSON) == 0 {
		return nil, fmt.Errorf("event %s has no parsed payload", e.Type)
	}
	var out SystemEpochInfoEvent
	if err := json.Unmarshal(e.ParsedJSON, &out); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return &out, nil
}
