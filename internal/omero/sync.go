package omero

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/screendata/mihcsme/internal/errors"
	"github.com/screendata/mihcsme/internal/model"
	"github.com/screendata/mihcsme/internal/taxonomy"
)

// SyncService moves Metadata aggregates in and out of the remote
// annotation store. Tier data lives on the target object as one
// annotation per group under {base}/{Tier}/{Group}; per-well conditions
// live on the wells under the fixed {base}/AssayConditions namespace.
type SyncService struct {
	gw     Gateway
	logger *slog.Logger
}

// NewSyncService creates a sync service over an open gateway.
func NewSyncService(gw Gateway, logger *slog.Logger) *SyncService {
	return &SyncService{gw: gw, logger: logger}
}

// Upload writes the aggregate's tier groups and well conditions to the
// target Screen or Plate. Returns the number of annotations created.
// Fails with a validation error when the target cannot be located; a
// condition row whose plate or well does not exist under the target is
// skipped with a warning, not fatal.
func (s *SyncService) Upload(ctx context.Context, m *model.Metadata, targetType string, targetID int64, nsBase string) (int, error) {
	run := uuid.NewString()
	log := s.logger.With("run_id", run, "target_type", targetType, "target_id", targetID)

	target, err := s.resolveTarget(ctx, targetType, targetID)
	if err != nil {
		return 0, err
	}

	type tierData struct {
		name   string
		groups model.GroupedFields
	}
	var tiers []tierData
	if m.Investigation != nil {
		tiers = append(tiers, tierData{taxonomy.TierInvestigation, m.Investigation.Groups})
	}
	if m.Study != nil {
		tiers = append(tiers, tierData{taxonomy.TierStudy, m.Study.Groups})
	}
	if m.Assay != nil {
		tiers = append(tiers, tierData{taxonomy.TierAssay, m.Assay.Groups})
	}

	created := 0
	for _, tier := range tiers {
		for group, fields := range tier.groups {
			if len(fields) == 0 {
				continue
			}
			ns := taxonomy.Namespace(nsBase, tier.name, group)
			if _, err := s.gw.CreateMapAnnotation(ctx, targetType, targetID, toPairs(fields), ns); err != nil {
				return created, err
			}
			created++
			log.Debug("created tier annotation", "namespace", ns, "fields", len(fields))
		}
	}

	if len(m.Conditions) > 0 {
		n, err := s.uploadConditions(ctx, log, m.Conditions, target, targetType, nsBase)
		created += n
		if err != nil {
			return created, err
		}
	}

	log.Info("upload complete", "annotations", created)
	return created, nil
}

// uploadConditions writes one conditions annotation per matching well.
func (s *SyncService) uploadConditions(ctx context.Context, log *slog.Logger, conditions []model.WellCondition, target Object, targetType string, nsBase string) (int, error) {
	wells, err := s.wellIndex(ctx, target, targetType)
	if err != nil {
		return 0, err
	}

	ns := taxonomy.ConditionsNamespace(nsBase)
	created := 0
	for _, cond := range conditions {
		well, ok := wells[wellKey{plate: cond.Plate, well: cond.Well}]
		if !ok {
			log.Warn("no well on server for condition row", "plate", cond.Plate, "well", cond.Well)
			continue
		}
		if _, err := s.gw.CreateMapAnnotation(ctx, TypeWell, well.ID(), toPairs(cond.Conditions), ns); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Download reconstructs a Metadata aggregate from the annotations on
// the target and its wells. Wells with no conditions annotation are
// silently skipped: absence of metadata is a valid state.
func (s *SyncService) Download(ctx context.Context, targetType string, targetID int64, nsBase string) (*model.Metadata, error) {
	target, err := s.resolveTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}

	m := &model.Metadata{}

	anns, err := target.ListAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	tiers := map[string]model.GroupedFields{}
	for _, ann := range anns {
		if tier, group, ok := taxonomy.SplitNamespace(nsBase, ann.Namespace); ok {
			// The namespace already names the group; trusting it keeps
			// unrecognized group names intact on round-trip.
			if tiers[tier] == nil {
				tiers[tier] = model.GroupedFields{}
			}
			for _, pair := range ann.Pairs {
				tiers[tier].Set(group, pair[0], model.NormalizeValue(pair[1]))
			}
			continue
		}
		if tier, ok := taxonomy.LegacyTier(nsBase, ann.Namespace); ok {
			// Flat legacy form: regroup by field name.
			flat := map[string]model.Value{}
			for _, pair := range ann.Pairs {
				flat[pair[0]] = model.NormalizeValue(pair[1])
			}
			if tiers[tier] == nil {
				tiers[tier] = model.GroupedFields{}
			}
			for group, fields := range taxonomy.GroupFields(flat) {
				for field, value := range fields {
					tiers[tier].Set(group, field, value)
				}
			}
		}
	}
	if groups := tiers[taxonomy.TierInvestigation]; len(groups) > 0 {
		m.Investigation = &model.InvestigationInfo{Groups: groups}
	}
	if groups := tiers[taxonomy.TierStudy]; len(groups) > 0 {
		m.Study = &model.StudyInfo{Groups: groups}
	}
	if groups := tiers[taxonomy.TierAssay]; len(groups) > 0 {
		m.Assay = &model.AssayInfo{Groups: groups}
	}

	plates, err := s.targetPlates(ctx, target, targetType)
	if err != nil {
		return nil, err
	}

	conditionsNS := taxonomy.ConditionsNamespace(nsBase)
	for _, plate := range plates {
		wells, err := plate.ListChildren(ctx)
		if err != nil {
			return nil, err
		}
		for _, well := range wells {
			anns, err := well.ListAnnotations(ctx)
			if err != nil {
				return nil, err
			}
			fields := map[string]model.Value{}
			matched := false
			for _, ann := range anns {
				if ann.Namespace != conditionsNS {
					continue
				}
				matched = true
				for _, pair := range ann.Pairs {
					fields[pair[0]] = model.NormalizeValue(pair[1])
				}
			}
			if !matched {
				continue
			}
			label, err := model.WellFromIndices(well.Row(), well.Column())
			if err != nil {
				return nil, err
			}
			cond, err := model.NewWellCondition(plate.Name(), label, fields)
			if err != nil {
				return nil, err
			}
			m.Conditions = append(m.Conditions, cond)
		}
	}

	s.logger.Info("download complete",
		"target_type", targetType,
		"target_id", targetID,
		"wells", len(m.Conditions),
	)
	return m, nil
}

// DeleteNamespace removes every annotation under the namespace prefix
// from the target object. Idempotent: deleting nothing returns 0.
func (s *SyncService) DeleteNamespace(ctx context.Context, targetType string, targetID int64, nsPrefix string) (int, error) {
	n, err := s.gw.DeleteAnnotations(ctx, targetType, targetID, nsPrefix)
	if err != nil {
		return 0, err
	}
	s.logger.Info("deleted annotations",
		"target_type", targetType,
		"target_id", targetID,
		"namespace", nsPrefix,
		"count", n,
	)
	return n, nil
}

// resolveTarget fetches the sync target and converts absence into a
// validation error naming the type and id.
func (s *SyncService) resolveTarget(ctx context.Context, targetType string, targetID int64) (Object, error) {
	if targetType != TypeScreen && targetType != TypePlate {
		return nil, errors.Validationf("unsupported target type: %s", targetType)
	}
	obj, err := s.gw.GetObject(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Validationf("%s with ID %d not found", targetType, targetID)
	}
	return obj, nil
}

// targetPlates normalizes the target into its list of plates: a Screen
// enumerates children, a Plate is its own single plate.
func (s *SyncService) targetPlates(ctx context.Context, target Object, targetType string) ([]Object, error) {
	if targetType == TypeScreen {
		return target.ListChildren(ctx)
	}
	return []Object{target}, nil
}

type wellKey struct {
	plate string
	well  string
}

// wellIndex maps (plate name, canonical well label) to the well object
// for every well under the target.
func (s *SyncService) wellIndex(ctx context.Context, target Object, targetType string) (map[wellKey]Object, error) {
	plates, err := s.targetPlates(ctx, target, targetType)
	if err != nil {
		return nil, err
	}

	index := map[wellKey]Object{}
	for _, plate := range plates {
		wells, err := plate.ListChildren(ctx)
		if err != nil {
			return nil, err
		}
		for _, well := range wells {
			label, err := model.WellFromIndices(well.Row(), well.Column())
			if err != nil {
				return nil, err
			}
			index[wellKey{plate: plate.Name(), well: label}] = well
		}
	}
	return index, nil
}

// toPairs renders a field map as ordered key/value text pairs. Keys are
// sorted so repeated uploads produce identical annotations.
func toPairs(fields map[string]model.Value) [][2]string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, model.ValueString(fields[k])})
	}
	return pairs
}
