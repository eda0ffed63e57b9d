package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // Import for register side-effects.
	log "github.com/sirupsen/logrus"

	"github.com/asjadnft/sui-indexer/go/models"
)

// SQLiteStore is an IndexerStore over a local SQLite database. It's the
// store the sui-indexer binary opens; this package's tests run it against
// an in-memory database.
type SQLiteStore struct {
	db *sql.DB
}

var _ IndexerStore = (*SQLiteStore)(nil)

// SQLite / go-sqlite3 is a bit fickle about raced opens of a newly
// created database, often returning "database is locked" errors. We
// resolve by ensuring one sql.Open completes before the next starts.
var sqliteOpenMu sync.Mutex

// OpenSQLite opens (and if needed creates) the database at path and
// ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	log.WithField("path", path).Info("opening indexer database")

	sqliteOpenMu.Lock()
	db, err := sql.Open("sqlite3", path)
	if err == nil {
		err = db.PingContext(ctx)
	}
	sqliteOpenMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("opening SQLite database %q: %w", path, err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	sequence_number            INTEGER PRIMARY KEY,
	checkpoint_digest          TEXT NOT NULL,
	epoch                      INTEGER NOT NULL,
	transactions               TEXT NOT NULL,
	previous_checkpoint_digest TEXT,
	end_of_epoch               INTEGER NOT NULL,
	total_gas_cost             INTEGER NOT NULL,
	computation_cost           INTEGER NOT NULL,
	storage_cost               INTEGER NOT NULL,
	storage_rebate             INTEGER NOT NULL,
	total_transactions         INTEGER NOT NULL,
	network_total_transactions INTEGER NOT NULL,
	timestamp_ms               INTEGER NOT NULL,
	validator_signature        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	transaction_digest      TEXT PRIMARY KEY,
	sender                  TEXT NOT NULL,
	checkpoint_sequence_num INTEGER NOT NULL,
	timestamp_ms            INTEGER NOT NULL,
	transaction_kind        TEXT NOT NULL,
	transaction_count       INTEGER NOT NULL,
	execution_success       INTEGER NOT NULL,
	created                 TEXT NOT NULL,
	mutated                 TEXT NOT NULL,
	deleted                 TEXT NOT NULL,
	unwrapped               TEXT NOT NULL,
	wrapped                 TEXT NOT NULL,
	move_calls              TEXT NOT NULL,
	gas_object_id           TEXT NOT NULL,
	gas_budget              INTEGER NOT NULL,
	total_gas_cost          INTEGER NOT NULL,
	gas_price               INTEGER NOT NULL,
	raw_transaction         TEXT NOT NULL,
	transaction_content     TEXT NOT NULL,
	transaction_effects     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	transaction_digest TEXT NOT NULL,
	event_sequence     INTEGER NOT NULL,
	sender             TEXT NOT NULL,
	package            TEXT NOT NULL,
	module             TEXT NOT NULL,
	event_type         TEXT NOT NULL,
	event_time_ms      INTEGER,
	parsed_json        TEXT NOT NULL,
	bcs                TEXT NOT NULL,
	PRIMARY KEY (transaction_digest, event_sequence)
);
CREATE TABLE IF NOT EXISTS objects (
	object_id            TEXT NOT NULL,
	version              INTEGER NOT NULL,
	epoch                INTEGER NOT NULL,
	checkpoint           INTEGER NOT NULL,
	object_digest        TEXT NOT NULL,
	object_type          TEXT NOT NULL,
	owner_type           TEXT NOT NULL,
	owner_address        TEXT NOT NULL,
	previous_transaction TEXT NOT NULL,
	object_status        TEXT NOT NULL,
	has_public_transfer  INTEGER NOT NULL,
	storage_rebate       INTEGER NOT NULL,
	bcs_bytes            TEXT NOT NULL,
	PRIMARY KEY (object_id, version)
);
CREATE TABLE IF NOT EXISTS packages (
	package_id TEXT NOT NULL,
	version    INTEGER NOT NULL,
	author     TEXT NOT NULL,
	module_map TEXT NOT NULL,
	PRIMARY KEY (package_id, version)
);
CREATE TABLE IF NOT EXISTS addresses (
	account_address       TEXT PRIMARY KEY,
	first_appearance_tx   TEXT NOT NULL,
	first_appearance_time INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS input_objects (
	transaction_digest TEXT NOT NULL,
	checkpoint         INTEGER NOT NULL,
	epoch              INTEGER NOT NULL,
	object_id          TEXT NOT NULL,
	object_version     INTEGER
);
CREATE INDEX IF NOT EXISTS input_objects_tx ON input_objects (transaction_digest);
CREATE TABLE IF NOT EXISTS move_calls (
	transaction_digest TEXT NOT NULL,
	checkpoint         INTEGER NOT NULL,
	epoch              INTEGER NOT NULL,
	sender             TEXT NOT NULL,
	move_call          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS move_calls_tx ON move_calls (transaction_digest);
CREATE TABLE IF NOT EXISTS recipients (
	transaction_digest TEXT NOT NULL,
	checkpoint         INTEGER NOT NULL,
	epoch              INTEGER NOT NULL,
	sender             TEXT NOT NULL,
	recipient          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS recipients_tx ON recipients (transaction_digest);
CREATE TABLE IF NOT EXISTS epochs (
	epoch                      INTEGER PRIMARY KEY,
	first_checkpoint_id        INTEGER NOT NULL,
	last_checkpoint_id         INTEGER,
	epoch_start_timestamp      INTEGER NOT NULL,
	epoch_end_timestamp        INTEGER,
	epoch_total_transactions   INTEGER NOT NULL,
	next_epoch_version         INTEGER,
	next_epoch_committee       TEXT NOT NULL,
	next_epoch_committee_stake TEXT NOT NULL,
	epoch_commitments          TEXT NOT NULL,
	protocol_version           INTEGER,
	reference_gas_price        INTEGER,
	total_stake                INTEGER,
	storage_fund_reinvestment  INTEGER,
	storage_charge             INTEGER,
	storage_rebate             INTEGER,
	storage_fund_balance       INTEGER,
	stake_subsidy_amount       INTEGER,
	total_gas_fees             INTEGER,
	total_stake_rewards        INTEGER,
	leftover_storage_fund      INTEGER
);
CREATE TABLE IF NOT EXISTS system_states (
	epoch                    INTEGER PRIMARY KEY,
	protocol_version         INTEGER NOT NULL,
	system_state_version     INTEGER NOT NULL,
	storage_fund_balance     INTEGER NOT NULL,
	reference_gas_price      INTEGER NOT NULL,
	safe_mode                INTEGER NOT NULL,
	epoch_start_timestamp_ms INTEGER NOT NULL,
	epoch_duration_ms        INTEGER NOT NULL,
	total_stake              INTEGER NOT NULL,
	active_validator_count   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS validators (
	epoch                    INTEGER NOT NULL,
	sui_address              TEXT NOT NULL,
	name                     TEXT NOT NULL,
	voting_power             INTEGER NOT NULL,
	gas_price                INTEGER NOT NULL,
	commission_rate          INTEGER NOT NULL,
	next_epoch_stake         INTEGER NOT NULL,
	staking_pool_sui_balance INTEGER NOT NULL,
	rewards_pool             INTEGER NOT NULL,
	pool_token_balance       INTEGER NOT NULL,
	pending_stake            INTEGER NOT NULL,
	detail                   TEXT NOT NULL,
	PRIMARY KEY (epoch, sui_address)
);
`

// GetLatestCheckpointSequenceNumber returns the highest committed
// sequence number, or -1 when the table is empty.
func (s *SQLiteStore) GetLatestCheckpointSequenceNumber(ctx context.Context) (int64, error) {
	var seq int64
	var err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_number), -1) FROM checkpoints;`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("querying latest checkpoint: %w", err)
	}
	return seq, nil
}

// PersistCheckpoint writes one staged checkpoint in a single database
// transaction, upserting every row.
func (s *SQLiteStore) PersistCheckpoint(ctx context.Context, data *TemporaryCheckpointStore) error {
	var txn, err = s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer txn.Rollback()

	var c = data.Checkpoint
	if _, err = txn.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoints (
			sequence_number, checkpoint_digest, epoch, transactions,
			previous_checkpoint_digest, end_of_epoch, total_gas_cost,
			computation_cost, storage_cost, storage_rebate,
			total_transactions, network_total_transactions, timestamp_ms,
			validator_signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		c.SequenceNumber, c.CheckpointDigest, c.Epoch, mustJSON(c.Transactions),
		c.PreviousCheckpointDigest, c.EndOfEpoch, c.TotalGasCost,
		c.ComputationCost, c.StorageCost, c.StorageRebate,
		c.TotalTransactions, c.NetworkTotalTransactions, c.TimestampMs,
		c.ValidatorSignature,
	); err != nil {
		return fmt.Errorf("upserting checkpoint %d: %w", c.SequenceNumber, err)
	}

	for _, t := range data.Transactions {
		if _, err = txn.ExecContext(ctx, `
			INSERT OR REPLACE INTO transactions (
				transaction_digest, sender, checkpoint_sequence_num,
				timestamp_ms, transaction_kind, transaction_count,
				execution_success, created, mutated, deleted, unwrapped,
				wrapped, move_calls, gas_object_id, gas_budget,
				total_gas_cost, gas_price, raw_transaction,
				transaction_content, transaction_effects
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			t.TransactionDigest, t.Sender, t.CheckpointSequenceNum,
			t.TimestampMs, t.TransactionKind, t.TransactionCount,
			t.ExecutionSuccess, mustJSON(t.Created), mustJSON(t.Mutated),
			mustJSON(t.Deleted), mustJSON(t.Unwrapped), mustJSON(t.Wrapped),
			mustJSON(t.MoveCalls), t.GasObjectID, t.GasBudget,
			t.TotalGasCost, t.GasPrice, t.RawTransaction,
			t.TransactionContent, t.TransactionEffects,
		); err != nil {
			return fmt.Errorf("upserting transaction %s: %w", t.TransactionDigest, err)
		}
	}

	for _, e := range data.Events {
		if _, err = txn.ExecContext(ctx, `
			INSERT OR REPLACE INTO events (
				transaction_digest, event_sequence, sender, package,
				module, event_type, event_time_ms, parsed_json, bcs
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			e.TransactionDigest, e.EventSequence, e.Sender, e.Package,
			e.Module, e.EventType, e.EventTimeMs, e.ParsedJSON, e.Bcs,
		); err != nil {
			return fmt.Errorf("upserting event %s/%d: %w", e.TransactionDigest, e.EventSequence, err)
		}
	}

	for _, changes := range data.ObjectChanges {
		for _, o := range changes.Changed {
			if _, err = txn.ExecContext(ctx, `
				INSERT OR REPLACE INTO objects (
					object_id, version, epoch, checkpoint, object_digest,
					object_type, owner_type, owner_address,
					previous_transaction, object_status,
					has_public_transfer, storage_rebate, bcs_bytes
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
				o.ObjectID, o.Version, o.Epoch, o.CheckpointSeq, o.ObjectDigest,
				o.ObjectType, o.OwnerType, o.OwnerAddress,
				o.PreviousTransaction, o.ObjectStatus,
				o.HasPublicTransfer, o.StorageRebate, o.BcsBytes,
			); err != nil {
				return fmt.Errorf("upserting object %s@%d: %w", o.ObjectID, o.Version, err)
			}
		}
		for _, o := range changes.Deleted {
			if _, err = txn.ExecContext(ctx, `
				INSERT OR REPLACE INTO objects (
					object_id, version, epoch, checkpoint, object_digest,
					object_type, owner_type, owner_address,
					previous_transaction, object_status,
					has_public_transfer, storage_rebate, bcs_bytes
				) VALUES (?, ?, ?, ?, ?, '', '', '', ?, ?, 0, 0, '');`,
				o.ObjectID, o.Version, o.Epoch, o.CheckpointSeq, o.ObjectDigest,
				o.PreviousTransaction, o.ObjectStatus,
			); err != nil {
				return fmt.Errorf("upserting deleted object %s@%d: %w", o.ObjectID, o.Version, err)
			}
		}
	}

	for _, p := range data.Packages {
		if _, err = txn.ExecContext(ctx, `
			INSERT OR REPLACE INTO packages (package_id, version, author, module_map)
			VALUES (?, ?, ?, ?);`,
			p.PackageID, p.Version, p.Author, mustJSON(p.ModuleMap),
		); err != nil {
			return fmt.Errorf("upserting package %s: %w", p.PackageID, err)
		}
	}

	// An address row records its first appearance; later sightings lose.
	for _, a := range data.Addresses {
		if _, err = txn.ExecContext(ctx, `
			INSERT INTO addresses (account_address, first_appearance_tx, first_appearance_time)
			VALUES (?, ?, ?)
			ON CONFLICT (account_address) DO NOTHING;`,
			a.AccountAddress, a.FirstAppearanceTx, a.FirstAppearanceTime,
		); err != nil {
			return fmt.Errorf("inserting address %s: %w", a.AccountAddress, err)
		}
	}

	// Projection tables have no natural key; re-delivery replaces the
	// transaction's prior rows.
	for _, t := range data.Transactions {
		for _, table := range []string{"input_objects", "move_calls", "recipients"} {
			if _, err = txn.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE transaction_digest = ?;`, t.TransactionDigest,
			); err != nil {
				return fmt.Errorf("clearing %s of %s: %w", table, t.TransactionDigest, err)
			}
		}
	}
	for _, in := range data.InputObjects {
		if _, err = txn.ExecContext(ctx, `
			INSERT INTO input_objects (transaction_digest, checkpoint, epoch, object_id, object_version)
			VALUES (?, ?, ?, ?, ?);`,
			in.TransactionDigest, in.CheckpointSeq, in.Epoch, in.ObjectID, in.ObjectVersion,
		); err != nil {
			return fmt.Errorf("inserting input object of %s: %w", in.TransactionDigest, err)
		}
	}
	for _, mc := range data.MoveCalls {
		if _, err = txn.ExecContext(ctx, `
			INSERT INTO move_calls (transaction_digest, checkpoint, epoch, sender, move_call)
			VALUES (?, ?, ?, ?, ?);`,
			mc.TransactionDigest, mc.CheckpointSeq, mc.Epoch, mc.Sender, mc.MoveCall,
		); err != nil {
			return fmt.Errorf("inserting move call of %s: %w", mc.TransactionDigest, err)
		}
	}
	for _, r := range data.Recipients {
		if _, err = txn.ExecContext(ctx, `
			INSERT INTO recipients (transaction_digest, checkpoint, epoch, sender, recipient)
			VALUES (?, ?, ?, ?, ?);`,
			r.TransactionDigest, r.CheckpointSeq, r.Epoch, r.Sender, r.Recipient,
		); err != nil {
			return fmt.Errorf("inserting recipient of %s: %w", r.TransactionDigest, err)
		}
	}

	if err = txn.Commit(); err != nil {
		return fmt.Errorf("committing checkpoint %d: %w", c.SequenceNumber, err)
	}
	return nil
}

// PersistEpoch writes one staged epoch boundary.
func (s *SQLiteStore) PersistEpoch(ctx context.Context, data *TemporaryEpochStore) error {
	var txn, err = s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer txn.Rollback()

	if data.LastEpoch != nil {
		if err = upsertEpoch(ctx, txn, data.LastEpoch); err != nil {
			return fmt.Errorf("upserting last epoch %d: %w", data.LastEpoch.Epoch, err)
		}
	}
	if err = upsertEpoch(ctx, txn, &data.NewEpoch); err != nil {
		return fmt.Errorf("upserting new epoch %d: %w", data.NewEpoch.Epoch, err)
	}

	var ss = data.SystemState
	if _, err = txn.ExecContext(ctx, `
		INSERT OR REPLACE INTO system_states (
			epoch, protocol_version, system_state_version,
			storage_fund_balance, reference_gas_price, safe_mode,
			epoch_start_timestamp_ms, epoch_duration_ms, total_stake,
			active_validator_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		ss.Epoch, ss.ProtocolVersion, ss.SystemStateVersion,
		ss.StorageFundBalance, ss.ReferenceGasPrice, ss.SafeMode,
		ss.EpochStartTimestampMs, ss.EpochDurationMs, ss.TotalStake,
		ss.ActiveValidatorCount,
	); err != nil {
		return fmt.Errorf("upserting system state %d: %w", ss.Epoch, err)
	}

	for _, v := range data.Validators {
		if _, err = txn.ExecContext(ctx, `
			INSERT OR REPLACE INTO validators (
				epoch, sui_address, name, voting_power, gas_price,
				commission_rate, next_epoch_stake, staking_pool_sui_balance,
				rewards_pool, pool_token_balance, pending_stake, detail
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			v.Epoch, v.SuiAddress, v.Name, v.VotingPower, v.GasPrice,
			v.CommissionRate, v.NextEpochStake, v.StakingPoolSuiBalance,
			v.RewardsPool, v.PoolTokenBalance, v.PendingStake, mustJSON(v),
		); err != nil {
			return fmt.Errorf("upserting validator %s@%d: %w", v.SuiAddress, v.Epoch, err)
		}
	}

	if err = txn.Commit(); err != nil {
		return fmt.Errorf("committing epoch %d: %w", data.NewEpoch.Epoch, err)
	}
	return nil
}

func upsertEpoch(ctx context.Context, txn *sql.Tx, e *models.EpochInfo) error {
	_, err := txn.ExecContext(ctx, `
		INSERT OR REPLACE INTO epochs (
			epoch, first_checkpoint_id, last_checkpoint_id,
			epoch_start_timestamp, epoch_end_timestamp,
			epoch_total_transactions, next_epoch_version,
			next_epoch_committee, next_epoch_committee_stake,
			epoch_commitments, protocol_version, reference_gas_price,
			total_stake, storage_fund_reinvestment, storage_charge,
			storage_rebate, storage_fund_balance, stake_subsidy_amount,
			total_gas_fees, total_stake_rewards, leftover_storage_fund
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		e.Epoch, e.FirstCheckpointID, e.LastCheckpointID,
		e.EpochStartTimestamp, e.EpochEndTimestamp,
		e.EpochTotalTransactions, e.NextEpochVersion,
		mustJSON(e.NextEpochCommittee), mustJSON(e.NextEpochCommitteeStake),
		mustJSON(e.EpochCommitments), e.ProtocolVersion, e.ReferenceGasPrice,
		e.TotalStake, e.StorageFundReinvestment, e.StorageCharge,
		e.StorageRebate, e.StorageFundBalance, e.StakeSubsidyAmount,
		e.TotalGasFees, e.TotalStakeRewardsDistributed, e.LeftoverStorageFundInflow,
	)
	return err
}

func mustJSON(v interface{}) string {
	var b, err = json.Marshal(v)
	if err != nil {
		panic(err) // Marshalling of our own row types cannot fail.
	}
	return string(b)
}
