package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"risk-service/internal/config"
	"risk-service/internal/util"
)

// ErrStoreUnavailable is the generic persistence fault. Repositories wrap
// every Scylla failure in it so callers can distinguish "store down" from
// "not found" (which is returned as a nil record, never an error).
var ErrStoreUnavailable = errors.New("store unavailable")

// Statements collects the CQL used by the repositories. Queries are built per
// call from these texts; gocql prepares and caches them per statement string.
type Statements struct {
	InsertSubject         string
	InsertSubjectExternal string
	SelectSubjectExternal string
	SelectSubjectByID     string
	SelectAllSubjects     string
	UpdateSubjectProfile  string
	UpdateSubjectScore    string
	DeleteSubject         string
	DeleteSubjectExternal string

	InsertOrganization string
	SelectOrganization string
	SelectAllOrgs      string

	UpsertDeclaration     string
	SelectDeclaration     string
	DeleteDeclaration     string
	SelectAllDeclarations string

	InsertEvent           string
	InsertEventBySubject  string
	InsertEventByOrg      string
	InsertUnresolved      string
	SelectEvent           string
	SelectEventsBySubject string
	SelectEventsByOrg     string
	SelectUnresolved      string
	ResolveEvent          string
	ResolveEventBySubject string
	ResolveEventByOrg     string
	DeleteUnresolved      string

	UpsertFingerprint         string
	SelectFingerprints        string
	DeleteSubjectFingerprints string
}

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
	Stmts   *Statements
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
		Stmts:   buildStatements(),
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func buildStatements() *Statements {
	return &Statements{
		InsertSubject: `
        INSERT INTO subjects (
            subject_bucket, subject_id, external_hash, external_encrypted,
            external_dek, external_key_id, full_name, email, ref_score,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		InsertSubjectExternal: `
        INSERT INTO subjects_by_external (external_hash, subject_id, created_at)
        VALUES (?, ?, ?) IF NOT EXISTS`,

		SelectSubjectExternal: `
        SELECT subject_id FROM subjects_by_external WHERE external_hash = ?`,

		SelectSubjectByID: `
        SELECT subject_bucket, subject_id, external_hash, external_encrypted,
            external_dek, external_key_id, full_name, email, ref_score,
            created_at, updated_at
        FROM subjects WHERE subject_bucket = ? AND subject_id = ?`,

		SelectAllSubjects: `
        SELECT subject_bucket, subject_id, external_hash, external_encrypted,
            external_dek, external_key_id, full_name, email, ref_score,
            created_at, updated_at
        FROM subjects`,

		UpdateSubjectProfile: `
        UPDATE subjects SET full_name = ?, email = ?, updated_at = ?
        WHERE subject_bucket = ? AND subject_id = ?`,

		UpdateSubjectScore: `
        UPDATE subjects SET ref_score = ?, updated_at = ?
        WHERE subject_bucket = ? AND subject_id = ?`,

		DeleteSubject: `
        DELETE FROM subjects WHERE subject_bucket = ? AND subject_id = ?`,

		DeleteSubjectExternal: `
        DELETE FROM subjects_by_external WHERE external_hash = ?`,

		InsertOrganization: `
        INSERT INTO organizations (org_id, name, created_at)
        VALUES (?, ?, ?) IF NOT EXISTS`,

		SelectOrganization: `
        SELECT org_id, name, created_at FROM organizations WHERE org_id = ?`,

		SelectAllOrgs: `
        SELECT org_id, name, created_at FROM organizations`,

		UpsertDeclaration: `
        INSERT INTO org_declarations (org_id, breach_category, effect_weight, description, declared_at)
        VALUES (?, ?, ?, ?, ?)`,

		SelectDeclaration: `
        SELECT org_id, breach_category, effect_weight, description, declared_at
        FROM org_declarations WHERE org_id = ?`,

		DeleteDeclaration: `
        DELETE FROM org_declarations WHERE org_id = ?`,

		SelectAllDeclarations: `
        SELECT org_id, breach_category, effect_weight, description, declared_at
        FROM org_declarations`,

		InsertEvent: `
        INSERT INTO breach_events (
            event_id, subject_id, org_id, breach_category, severity,
            effect_weight, status, description, manual_entry, created_at,
            resolution_notes, resolved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		InsertEventBySubject: `
        INSERT INTO events_by_subject (
            subject_id, created_at, event_id, org_id, breach_category,
            severity, effect_weight, status, description, manual_entry,
            resolution_notes, resolved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		InsertEventByOrg: `
        INSERT INTO events_by_org (
            org_id, created_at, event_id, subject_id, breach_category,
            severity, effect_weight, status, description, manual_entry,
            resolution_notes, resolved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		InsertUnresolved: `
        INSERT INTO unresolved_events (
            event_bucket, created_at, event_id, subject_id, org_id,
            breach_category, severity, effect_weight, description, manual_entry
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		SelectEvent: `
        SELECT event_id, subject_id, org_id, breach_category, severity,
            effect_weight, status, description, manual_entry, created_at,
            resolution_notes, resolved_at
        FROM breach_events WHERE event_id = ?`,

		SelectEventsBySubject: `
        SELECT event_id, subject_id, org_id, breach_category, severity,
            effect_weight, status, description, manual_entry, created_at,
            resolution_notes, resolved_at
        FROM events_by_subject WHERE subject_id = ?`,

		SelectEventsByOrg: `
        SELECT event_id, subject_id, org_id, breach_category, severity,
            effect_weight, status, description, manual_entry, created_at,
            resolution_notes, resolved_at
        FROM events_by_org WHERE org_id = ?`,

		SelectUnresolved: `
        SELECT event_id, subject_id, org_id, breach_category, severity,
            effect_weight, description, manual_entry, created_at
        FROM unresolved_events WHERE event_bucket = ?`,

		ResolveEvent: `
        UPDATE breach_events
        SET status = ?, resolution_notes = ?, resolved_at = ?
        WHERE event_id = ?`,

		ResolveEventBySubject: `
        UPDATE events_by_subject
        SET status = ?, resolution_notes = ?, resolved_at = ?
        WHERE subject_id = ? AND created_at = ? AND event_id = ?`,

		ResolveEventByOrg: `
        UPDATE events_by_org
        SET status = ?, resolution_notes = ?, resolved_at = ?
        WHERE org_id = ? AND created_at = ? AND event_id = ?`,

		DeleteUnresolved: `
        DELETE FROM unresolved_events
        WHERE event_bucket = ? AND created_at = ? AND event_id = ?`,

		UpsertFingerprint: `
        INSERT INTO device_fingerprints (
            subject_id, network_address, is_vpn, is_proxy, is_datacenter,
            is_tor, is_automated_agent, agent_provider, fraud_score,
            country_code, city, last_seen
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		SelectFingerprints: `
        SELECT subject_id, network_address, is_vpn, is_proxy, is_datacenter,
            is_tor, is_automated_agent, agent_provider, fraud_score,
            country_code, city, last_seen
        FROM device_fingerprints WHERE subject_id = ?`,

		DeleteSubjectFingerprints: `
        DELETE FROM device_fingerprints WHERE subject_id = ?`,
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}
