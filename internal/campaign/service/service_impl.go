package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	"github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/campaign/fanout"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/config"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	"github.com/smallbiznis/donora/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/internal/providers/contentgen"
	userdomain "github.com/smallbiznis/donora/internal/user/domain"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Organizations organizationdomain.Service
	Users         userdomain.Service
	Contents      contentdomain.Service
	Generator     contentgen.Provider
	Audit         auditdomain.Service
	Policy        *config.CampaignPolicyHolder
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	orgs      organizationdomain.Service
	users     userdomain.Service
	contents  contentdomain.Service
	generator contentgen.Provider
	audit     auditdomain.Service
	policy    *config.CampaignPolicyHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("campaign.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orgs:      p.Organizations,
		users:     p.Users,
		contents:  p.Contents,
		generator: p.Generator,
		audit:     p.Audit,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

// draft is a validated create request.
type draft struct {
	name       string
	source     domain.CampaignSource
	spec       fanout.Spec
	prompt     string
	contentTyp string
	count      int
}

func (s *Service) Create(ctx context.Context, req domain.CreateCampaignRequest) (*domain.CampaignResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	d, err := s.validate(ctx, orgID, req)
	if err != nil {
		return nil, err
	}

	var drafts []contentgen.Draft
	if d.source == domain.CampaignSourceAI {
		drafts, err = s.generator.Generate(ctx, contentgen.GenerateRequest{
			Prompt:      d.prompt,
			ContentType: d.contentTyp,
			Count:       d.count,
		})
		if err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		if len(drafts) != d.count {
			return nil, fmt.Errorf("generate content: got %d drafts, want %d", len(drafts), d.count)
		}
		// Slots are resolved to stored items inside the transaction.
		d.spec.Rotation = make([]snowflake.ID, len(drafts))
	}

	plan, err := fanout.Expand(d.spec)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	channelJSON, err := json.Marshal(d.spec.Channels)
	if err != nil {
		return nil, err
	}

	lastDay := plan.Drops[len(plan.Drops)-1].Date.String()
	campaign := domain.Campaign{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Name:          d.name,
		Source:        d.source,
		StartDate:     d.spec.StartDate.String(),
		EndDate:       &lastDay,
		SendTimeLocal: d.spec.SendTime.String(),
		Timezone:      d.spec.Location.String(),
		Channels:      datatypes.JSON(channelJSON),
		Status:        domain.CampaignStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.source == domain.CampaignSourceAI {
		prompt, contentType, count := d.prompt, d.contentTyp, d.count
		campaign.Prompt = &prompt
		campaign.ContentType = &contentType
		campaign.ContentCount = &count
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rotation := d.spec.Rotation
		if d.source == domain.CampaignSourceAI {
			reqs := make([]contentdomain.CreateContentItemRequest, 0, len(drafts))
			for _, dr := range drafts {
				reqs = append(reqs, contentdomain.CreateContentItemRequest{Title: dr.Title, Body: dr.Body, Meta: dr.Meta})
			}
			items, err := s.contents.CreateBatch(ctx, tx, orgID, reqs)
			if err != nil {
				return err
			}
			rotation = make([]snowflake.ID, 0, len(items))
			for _, item := range items {
				rotation = append(rotation, item.ID)
			}
		}

		if err := s.repo.InsertCampaign(ctx, tx, &campaign); err != nil {
			return err
		}
		if err := s.repo.InsertRecipients(ctx, tx, recipientsOf(campaign.ID, d.spec.Recipients)); err != nil {
			return err
		}
		contents := make([]domain.CampaignContent, 0, len(rotation))
		for i, itemID := range rotation {
			contents = append(contents, domain.CampaignContent{CampaignID: campaign.ID, Position: i, ContentItemID: itemID})
		}
		if err := s.repo.InsertContents(ctx, tx, contents); err != nil {
			return err
		}

		drops := make([]*domain.ScheduledDrop, 0, len(plan.Drops))
		for _, pd := range plan.Drops {
			drops = append(drops, &domain.ScheduledDrop{
				ID:            s.genID.Generate(),
				OrgID:         orgID,
				CampaignID:    campaign.ID,
				Position:      pd.Position,
				LocalDate:     pd.Date.String(),
				PublishAtUTC:  pd.PublishAtUTC,
				ContentItemID: rotation[pd.RotationIndex],
				Status:        domain.DropStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := s.repo.InsertDrops(ctx, tx, drops); err != nil {
			return err
		}

		jobs := make([]*domain.SendJob, 0, len(plan.Jobs))
		for _, drop := range drops {
			for _, pj := range plan.JobsFor(drop.Position) {
				jobs = append(jobs, &domain.SendJob{
					ID:         s.genID.Generate(),
					OrgID:      orgID,
					CampaignID: campaign.ID,
					DropID:     drop.ID,
					UserID:     pj.UserID,
					Channel:    pj.Channel,
					Position:   pj.Position,
					Status:     domain.SendJobStatusQueued,
					CreatedAt:  now,
					UpdatedAt:  now,
				})
			}
		}
		if err := s.repo.InsertSendJobs(ctx, tx, jobs); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			OrgID:      orgID,
			Action:     "campaign.create",
			TargetType: "campaign",
			TargetID:   campaign.ID.String(),
			Metadata: map[string]any{
				"name":       campaign.Name,
				"source":     string(campaign.Source),
				"drops":      len(drops),
				"send_jobs":  len(jobs),
				"start_date": campaign.StartDate,
				"end_date":   lastDay,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCampaignExpanded(ctx, orgID.String(), len(plan.Drops), len(plan.Jobs))
	s.log.Info("campaign created",
		zap.String("org_id", orgID.String()),
		zap.String("campaign_id", campaign.ID.String()),
		zap.Int("drops", len(plan.Drops)),
		zap.Int("send_jobs", len(plan.Jobs)),
	)

	return toResponse(campaign, int64(len(plan.Drops)))
}

func (s *Service) validate(ctx context.Context, orgID snowflake.ID, req domain.CreateCampaignRequest) (*draft, error) {
	policy := s.policy.Get()
	verr := &domain.ValidationError{}
	d := &draft{}

	d.name = strings.TrimSpace(req.Name)
	if d.name == "" {
		verr.Add("name", "required", "name is required")
	}

	start, err := fanout.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		verr.Add("start_date", "invalid", "start_date must be YYYY-MM-DD")
	}
	d.spec.StartDate = start

	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		end, err := fanout.ParseDate(strings.TrimSpace(*req.EndDate))
		if err != nil {
			verr.Add("end_date", "invalid", "end_date must be YYYY-MM-DD")
		} else {
			d.spec.EndDate = &end
		}
	}

	at, err := fanout.ParseTimeOfDay(strings.TrimSpace(req.SendTimeLocal))
	if err != nil {
		verr.Add("send_time_local", "invalid", "send_time_local must be HH:MM")
	}
	d.spec.SendTime = at

	seenChannels := map[string]struct{}{}
	for _, raw := range req.Channels {
		channel := strings.ToLower(strings.TrimSpace(raw))
		if channel == "" {
			continue
		}
		if !policy.AllowsChannel(channel) {
			verr.Add("channels", "unsupported", fmt.Sprintf("channel %q is not supported", channel))
			continue
		}
		if _, ok := seenChannels[channel]; ok {
			continue
		}
		seenChannels[channel] = struct{}{}
		d.spec.Channels = append(d.spec.Channels, channel)
	}
	if len(d.spec.Channels) == 0 && !verr.Has("channels") {
		verr.Add("channels", "required", "at least one channel is required")
	}

	parsedUsers, ok := parseIDs(req.UserIDs)
	userIDs := uniqueIDs(parsedUsers)
	switch {
	case !ok:
		verr.Add("user_ids", "invalid", "user_ids must be user identifiers")
	case len(userIDs) == 0:
		verr.Add("user_ids", "required", "at least one recipient is required")
	case policy.MaxRecipients > 0 && len(userIDs) > policy.MaxRecipients:
		verr.Add("user_ids", "too_many", fmt.Sprintf("at most %d recipients are allowed", policy.MaxRecipients))
	}
	d.spec.Recipients = userIDs

	prompt := strings.TrimSpace(req.Prompt)
	var contentIDs []snowflake.ID
	if prompt != "" {
		d.source = domain.CampaignSourceAI
		d.prompt = prompt
		d.contentTyp = strings.TrimSpace(req.ContentType)
		if d.contentTyp == "" {
			d.contentTyp = contentgen.DefaultContentType
		}
		d.count = req.ContentCount
		if len(req.ContentItems) > 0 {
			verr.Add("content_items", "not_allowed", "content_items cannot be combined with prompt")
		}
		switch {
		case d.count < 1:
			verr.Add("content_count", "required", "content_count must be at least 1")
		case policy.MaxAIContentCount > 0 && d.count > policy.MaxAIContentCount:
			verr.Add("content_count", "too_many", fmt.Sprintf("content_count must be at most %d", policy.MaxAIContentCount))
		}
		d.spec.ContentCount = d.count
	} else {
		d.source = domain.CampaignSourceManual
		if req.ContentCount > 0 || strings.TrimSpace(req.ContentType) != "" {
			verr.Add("prompt", "required", "prompt is required for generated content")
		}
		// Rotation keeps duplicates; a repeated item is a deliberate slot.
		contentIDs, ok = parseIDs(req.ContentItems)
		if !ok {
			verr.Add("content_items", "invalid", "content_items must be content item identifiers")
		} else if len(contentIDs) == 0 {
			verr.Add("content_items", "required", "at least one content item is required")
		}
		d.spec.Rotation = contentIDs
	}
	d.spec.MaxDays = policy.MaxDays

	if !verr.Has("start_date") && !verr.Has("end_date") && !verr.Has("content_count") {
		var dayErr *domain.ValidationError
		if _, err := fanout.Days(d.spec); errors.As(err, &dayErr) {
			verr.Violations = append(verr.Violations, dayErr.Violations...)
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	loc, err := s.orgs.Location(ctx, orgID)
	if err != nil {
		if errors.Is(err, organizationdomain.ErrNotFound) {
			return nil, domain.ErrInvalidOrganization
		}
		return nil, err
	}
	d.spec.Location = loc

	users, err := s.users.FindByIDs(ctx, orgID, userIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(userIDs) {
		verr.Add("user_ids", "not_found", "every recipient must be a user of the organization")
	}

	if d.source == domain.CampaignSourceManual {
		items, err := s.contents.FindByIDs(ctx, orgID, uniqueIDs(contentIDs))
		if err != nil {
			return nil, err
		}
		for _, id := range contentIDs {
			if _, ok := items[id]; !ok {
				verr.Add("content_items", "not_found", "every content item must belong to the organization")
				break
			}
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.CampaignResponse, error) {
	orgID, campaignID, err := scope(ctx, id)
	if err != nil {
		return nil, err
	}

	campaign, err := s.repo.FindByID(ctx, s.db, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.ErrNotFound
	}

	counts, err := s.repo.CountDrops(ctx, s.db, []snowflake.ID{campaign.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(*campaign, counts[campaign.ID])
}

func (s *Service) List(ctx context.Context, req domain.ListCampaignRequest) (domain.ListCampaignResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListCampaignResponse{}, domain.ErrInvalidOrganization
	}

	status := domain.CampaignStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	switch status {
	case "", domain.CampaignStatusActive, domain.CampaignStatusPaused, domain.CampaignStatusCancelled:
	default:
		return domain.ListCampaignResponse{}, domain.ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{OrgID: orgID, Status: status, Page: req.Pagination})
	if err != nil {
		return domain.ListCampaignResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, req.Limit(), func(c *domain.Campaign) string {
		return pagination.IDToken(c.ID.String())
	})

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	counts, err := s.repo.CountDrops(ctx, s.db, ids)
	if err != nil {
		return domain.ListCampaignResponse{}, err
	}

	out := make([]domain.CampaignResponse, 0, len(items))
	for _, item := range items {
		resp, err := toResponse(*item, counts[item.ID])
		if err != nil {
			return domain.ListCampaignResponse{}, err
		}
		out = append(out, *resp)
	}
	return domain.ListCampaignResponse{PageInfo: *pageInfo, Campaigns: out}, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.CampaignResponse, error) {
	orgID, campaignID, err := scope(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		campaign  *domain.Campaign
		cancelled int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, orgID, campaignID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		campaign = current
		if current.Status == domain.CampaignStatusCancelled {
			return nil
		}

		now := s.clock.Now().UTC()
		updated, err := s.repo.UpdateStatus(ctx, tx, orgID, campaignID,
			[]domain.CampaignStatus{domain.CampaignStatusActive, domain.CampaignStatusPaused},
			domain.CampaignStatusCancelled, now)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrInvalidTransition
		}

		cancelled, err = s.repo.CancelPendingDrops(ctx, tx, campaignID, now)
		if err != nil {
			return err
		}

		from := current.Status
		campaign.Status = domain.CampaignStatusCancelled
		campaign.UpdatedAt = now
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			OrgID:      orgID,
			Action:     "campaign.cancel",
			TargetType: "campaign",
			TargetID:   campaignID.String(),
			Metadata: map[string]any{
				"from_status":     string(from),
				"cancelled_drops": cancelled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDropsCancelled(ctx, orgID.String(), cancelled)
	if cancelled > 0 {
		s.log.Info("campaign cancelled",
			zap.String("campaign_id", campaignID.String()),
			zap.Int64("cancelled_drops", cancelled),
		)
	}

	counts, err := s.repo.CountDrops(ctx, s.db, []snowflake.ID{campaignID})
	if err != nil {
		return nil, err
	}
	return toResponse(*campaign, counts[campaignID])
}

func (s *Service) Pause(ctx context.Context, id string) (*domain.CampaignResponse, error) {
	return s.transition(ctx, id, domain.CampaignStatusActive, domain.CampaignStatusPaused, "campaign.pause")
}

func (s *Service) Resume(ctx context.Context, id string) (*domain.CampaignResponse, error) {
	return s.transition(ctx, id, domain.CampaignStatusPaused, domain.CampaignStatusActive, "campaign.resume")
}

func (s *Service) transition(ctx context.Context, id string, from, to domain.CampaignStatus, action string) (*domain.CampaignResponse, error) {
	orgID, campaignID, err := scope(ctx, id)
	if err != nil {
		return nil, err
	}

	var campaign *domain.Campaign
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, orgID, campaignID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.Status != from {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now().UTC()
		updated, err := s.repo.UpdateStatus(ctx, tx, orgID, campaignID, []domain.CampaignStatus{from}, to, now)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrInvalidTransition
		}
		current.Status = to
		current.UpdatedAt = now
		campaign = current

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			OrgID:      orgID,
			Action:     action,
			TargetType: "campaign",
			TargetID:   campaignID.String(),
			Metadata:   map[string]any{"from_status": string(from), "to_status": string(to)},
		})
	})
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountDrops(ctx, s.db, []snowflake.ID{campaignID})
	if err != nil {
		return nil, err
	}
	return toResponse(*campaign, counts[campaignID])
}

func (s *Service) ListDrops(ctx context.Context, id string) ([]domain.DropResponse, error) {
	orgID, campaignID, err := scope(ctx, id)
	if err != nil {
		return nil, err
	}

	campaign, err := s.repo.FindByID(ctx, s.db, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.ErrNotFound
	}

	drops, err := s.repo.ListDrops(ctx, s.db, orgID, campaignID)
	if err != nil {
		return nil, err
	}

	dropIDs := make([]snowflake.ID, 0, len(drops))
	itemIDs := make([]snowflake.ID, 0, len(drops))
	for _, drop := range drops {
		dropIDs = append(dropIDs, drop.ID)
		itemIDs = append(itemIDs, drop.ContentItemID)
	}
	jobCounts, err := s.repo.CountSendJobsByDrops(ctx, s.db, dropIDs)
	if err != nil {
		return nil, err
	}
	items, err := s.contents.FindByIDs(ctx, orgID, uniqueIDs(itemIDs))
	if err != nil {
		return nil, err
	}

	out := make([]domain.DropResponse, 0, len(drops))
	for _, drop := range drops {
		resp := toDropResponse(drop, items)
		resp.SendJobsCount = jobCounts[drop.ID]
		out = append(out, resp)
	}
	return out, nil
}

func (s *Service) GetDrop(ctx context.Context, campaignID, dropID string) (*domain.DropResponse, error) {
	orgID, cid, err := scope(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	did, err := parseID(dropID)
	if err != nil {
		return nil, err
	}

	drop, err := s.repo.FindDrop(ctx, s.db, orgID, cid, did)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, domain.ErrNotFound
	}

	jobs, err := s.repo.ListSendJobsByDrop(ctx, s.db, drop.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.contents.FindByIDs(ctx, orgID, []snowflake.ID{drop.ContentItemID})
	if err != nil {
		return nil, err
	}

	userIDs := make([]snowflake.ID, 0, len(jobs))
	for _, job := range jobs {
		userIDs = append(userIDs, job.UserID)
	}
	users, err := s.users.FindByIDs(ctx, orgID, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}

	resp := toDropResponse(*drop, items)
	resp.SendJobsCount = int64(len(jobs))
	resp.SendJobs = make([]domain.SendJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp.SendJobs = append(resp.SendJobs, toSendJobResponse(job, users))
	}
	return &resp, nil
}

var deliverySources = map[domain.SendJobStatus][]domain.SendJobStatus{
	domain.SendJobStatusSent:      {domain.SendJobStatusQueued},
	domain.SendJobStatusDelivered: {domain.SendJobStatusQueued, domain.SendJobStatusSent},
	domain.SendJobStatusFailed:    {domain.SendJobStatusQueued, domain.SendJobStatusSent},
}

func (s *Service) ReportDelivery(ctx context.Context, jobID string, req domain.ReportDeliveryRequest) (*domain.SendJobResponse, error) {
	orgID, id, err := scope(ctx, jobID)
	if err != nil {
		return nil, err
	}

	to := domain.SendJobStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	from, ok := deliverySources[to]
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	job, err := s.repo.FindSendJob(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	updated, err := s.repo.UpdateSendJobStatus(ctx, s.db, job.ID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrInvalidTransition
	}
	job.Status = to
	job.UpdatedAt = now

	users, err := s.users.FindByIDs(ctx, orgID, []snowflake.ID{job.UserID})
	if err != nil {
		return nil, err
	}
	resp := toSendJobResponse(*job, users)
	return &resp, nil
}

func scope(ctx context.Context, id string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, 0, domain.ErrInvalidOrganization
	}
	parsed, err := parseID(id)
	if err != nil {
		return 0, 0, err
	}
	return orgID, parsed, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseIDs(values []string) ([]snowflake.ID, bool) {
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		id, err := parseID(value)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func recipientsOf(campaignID snowflake.ID, userIDs []snowflake.ID) []domain.CampaignRecipient {
	out := make([]domain.CampaignRecipient, 0, len(userIDs))
	for i, userID := range userIDs {
		out = append(out, domain.CampaignRecipient{CampaignID: campaignID, UserID: userID, Position: i})
	}
	return out
}

func toResponse(c domain.Campaign, drops int64) (*domain.CampaignResponse, error) {
	channels, err := c.ChannelList()
	if err != nil {
		return nil, err
	}
	return &domain.CampaignResponse{
		ID:                  c.ID.String(),
		Name:                c.Name,
		Source:              c.Source,
		StartDate:           c.StartDate,
		EndDate:             c.EndDate,
		SendTimeLocal:       c.SendTimeLocal,
		Timezone:            c.Timezone,
		Channels:            channels,
		Status:              c.Status,
		Prompt:              c.Prompt,
		ContentType:         c.ContentType,
		ContentCount:        c.ContentCount,
		ScheduledDropsCount: drops,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}, nil
}

func toDropResponse(drop domain.ScheduledDrop, items map[snowflake.ID]contentdomain.ContentItem) domain.DropResponse {
	resp := domain.DropResponse{
		ID:           drop.ID.String(),
		CampaignID:   drop.CampaignID.String(),
		Position:     drop.Position,
		LocalDate:    drop.LocalDate,
		PublishAtUTC: drop.PublishAtUTC.UTC(),
		Status:       drop.Status,
	}
	if item, ok := items[drop.ContentItemID]; ok {
		resp.ContentItem = &domain.ContentItemSummary{
			ID:    item.ID.String(),
			Title: item.Title,
			Body:  item.Body,
			Meta:  item.Meta,
		}
	}
	return resp
}

func toSendJobResponse(job domain.SendJob, users map[snowflake.ID]userdomain.User) domain.SendJobResponse {
	resp := domain.SendJobResponse{
		ID:        job.ID.String(),
		DropID:    job.DropID.String(),
		Status:    job.Status,
		Channel:   job.Channel,
		User:      domain.UserSummary{ID: job.UserID.String()},
		UpdatedAt: job.UpdatedAt,
	}
	if user, ok := users[job.UserID]; ok {
		resp.User.Name = user.Name
	}
	return resp
}
