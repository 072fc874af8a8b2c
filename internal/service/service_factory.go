package service

import (
	"risk-service/internal/config"
	"risk-service/internal/encryption"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/reputation"
	"risk-service/internal/scoring"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg           *config.Config
	subjectRepo   scylla.SubjectRepository
	orgRepo       scylla.OrganizationRepository
	eventRepo     scylla.EventRepository
	fpRepo        scylla.FingerprintRepository
	provider      reputation.Provider
	repCache      ReputationCache
	encryptionMgr *encryption.EncryptionManager
	audit         AuditSink
	indexer       EventIndexer
	history       ScoreHistorySink

	subjectService *SubjectService
	orgService     *OrganizationService
	eventService   *BreachEventService
	deviceService  *DeviceService
	scoreService   *ScoreService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	subjectRepo scylla.SubjectRepository,
	orgRepo scylla.OrganizationRepository,
	eventRepo scylla.EventRepository,
	fpRepo scylla.FingerprintRepository,
	provider reputation.Provider,
	repCache ReputationCache,
	encryptionMgr *encryption.EncryptionManager,
	audit AuditSink,
	indexer EventIndexer,
	history ScoreHistorySink,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:           cfg,
		subjectRepo:   subjectRepo,
		orgRepo:       orgRepo,
		eventRepo:     eventRepo,
		fpRepo:        fpRepo,
		provider:      provider,
		repCache:      repCache,
		encryptionMgr: encryptionMgr,
		audit:         audit,
		indexer:       indexer,
		history:       history,
	}
}

// DeviceService returns the device service instance (singleton)
func (f *ServiceFactory) DeviceService() *DeviceService {
	if f.deviceService == nil {
		f.deviceService = NewDeviceService(
			f.fpRepo,
			f.provider,
			f.repCache,
			scoring.DeviceRiskParams{
				VPNBonus:   f.cfg.Scoring.VPNBonus,
				ProxyBonus: f.cfg.Scoring.ProxyBonus,
				TorBonus:   f.cfg.Scoring.TorBonus,
			},
			f.cfg.Scoring.AgentPenalty,
		)
	}
	return f.deviceService
}

// SubjectService returns the subject service instance (singleton)
func (f *ServiceFactory) SubjectService() *SubjectService {
	if f.subjectService == nil {
		f.subjectService = NewSubjectService(
			f.subjectRepo,
			f.DeviceService(),
			f.encryptionMgr,
			f.audit,
		)
	}
	return f.subjectService
}

// OrganizationService returns the organization service instance (singleton)
func (f *ServiceFactory) OrganizationService() *OrganizationService {
	if f.orgService == nil {
		f.orgService = NewOrganizationService(f.orgRepo)
	}
	return f.orgService
}

// BreachEventService returns the breach event service instance (singleton)
func (f *ServiceFactory) BreachEventService() *BreachEventService {
	if f.eventService == nil {
		resolver := scoring.NewEffectResolver(
			scoring.DefaultEffectTable(),
			f.orgRepo,
			f.audit,
		)
		f.eventService = NewBreachEventService(
			f.eventRepo,
			f.orgRepo,
			resolver,
			f.indexer,
			f.audit,
		)
	}
	return f.eventService
}

// ScoreService returns the score service instance (singleton)
func (f *ServiceFactory) ScoreService() *ScoreService {
	if f.scoreService == nil {
		f.scoreService = NewScoreService(
			f.subjectRepo,
			f.eventRepo,
			f.fpRepo,
			f.DeviceService(),
			scoring.DefaultWeights(),
			f.history,
			f.SubjectService(),
		)
	}
	return f.scoreService
}
