package services

import (
	"backend/models"
	"backend/repository"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrVersionNotFound = errors.New("quote version not found")
)

// ForkNotifier is told about successful copy-on-write forks so the quote
// owner can be notified out of band.
type ForkNotifier interface {
	NotifyVersionForked(quote models.QuoteGorm, version models.QuoteVersionGorm, actingUserID int)
}

// VersionService decides which state of a quote is editable and forks a new
// version when a non-creator writes, so non-owners never mutate someone
// else's draft in place.
type VersionService struct {
	db       *gorm.DB
	notifier ForkNotifier
}

func NewVersionService(db *gorm.DB, notifier ForkNotifier) *VersionService {
	return &VersionService{db: db, notifier: notifier}
}

// ResolveEditableState returns the quote's active version if one is set,
// otherwise the base quote itself. Read-only, never forks.
func (vs *VersionService) ResolveEditableState(quoteID uint) (*models.EditableState, error) {
	var quote models.QuoteGorm
	if err := vs.db.First(&quote, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}
	return vs.resolveFromQuote(&quote)
}

func (vs *VersionService) resolveFromQuote(quote *models.QuoteGorm) (*models.EditableState, error) {
	state := &models.EditableState{Quote: quote}
	if quote.ActiveVersionID == nil {
		return state, nil
	}

	var version models.QuoteVersionGorm
	if err := vs.db.First(&version, *quote.ActiveVersionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to load active version of quote %d: %w", quote.ID, err)
	}
	state.Version = &version
	return state, nil
}

// CreateNewVersionIfNonCreator resolves the editable state and, when the
// acting user did not create it, forks a new version: clones the group
// description and sort spec, replicates the state's rows with
// replicated_row_id back-references, remaps the cloned group membership to
// the replica ids, and marks the new version active. When the acting user
// is the creator the existing state is returned unchanged with WasForked
// false.
func (vs *VersionService) CreateNewVersionIfNonCreator(quoteID uint, actingUserID int) (*models.EditableState, error) {
	state, err := vs.ResolveEditableState(quoteID)
	if err != nil {
		return nil, err
	}

	if state.CreatorID() == actingUserID {
		return state, nil
	}

	var forked models.QuoteVersionGorm
	err = vs.db.Transaction(func(tx *gorm.DB) error {
		var lastCode string
		var last models.QuoteVersionGorm
		if err := tx.Where("quote_id = ?", quoteID).Order("id DESC").First(&last).Error; err == nil {
			lastCode = last.VersionCode
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load latest version of quote %d: %w", quoteID, err)
		}

		forked = models.QuoteVersionGorm{
			QuoteID:              quoteID,
			VersionCode:          repository.GenerateVersionCode(lastCode),
			CreatedBy:            actingUserID,
			GroupDescription:     cloneGroupList(state.Groups()),
			SortGroupDescription: state.Sort(),
		}
		if err := tx.Create(&forked).Error; err != nil {
			return fmt.Errorf("failed to create version of quote %d: %w", quoteID, err)
		}

		idMap, err := vs.replicateRows(tx, state, &forked)
		if err != nil {
			return err
		}

		remapGroupList(forked.GroupDescription, idMap)
		if err := tx.Model(&forked).Update("group_description", forked.GroupDescription).Error; err != nil {
			return fmt.Errorf("failed to remap group membership of version %d: %w", forked.ID, err)
		}

		if err := tx.Model(state.Quote).Update("active_version_id", forked.ID).Error; err != nil {
			return fmt.Errorf("failed to activate version %d: %w", forked.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	state.Quote.ActiveVersionID = &forked.ID

	if vs.notifier != nil {
		go vs.notifier.NotifyVersionForked(*state.Quote, forked, actingUserID)
	}

	return &models.EditableState{Quote: state.Quote, Version: &forked, WasForked: true}, nil
}

// replicateRows copies every row of the source state into the forked
// version and returns the old-id to new-id mapping.
func (vs *VersionService) replicateRows(tx *gorm.DB, state *models.EditableState, forked *models.QuoteVersionGorm) (map[string]string, error) {
	var source []models.MappedRowGorm
	q := tx.Where("quote_id = ?", state.Quote.ID)
	if state.Version != nil {
		q = q.Where("version_id = ?", state.Version.ID)
	} else {
		q = q.Where("version_id IS NULL")
	}
	if err := q.Order("created_at ASC, id ASC").Find(&source).Error; err != nil {
		return nil, fmt.Errorf("failed to load rows of quote %d: %w", state.Quote.ID, err)
	}

	idMap := make(map[string]string, len(source))
	for _, row := range source {
		oldID := row.ID
		replica := models.MappedRowGorm{
			ID:              uuid.NewString(),
			QuoteID:         row.QuoteID,
			VersionID:       &forked.ID,
			ReplicatedRowID: &oldID,
			ProductNo:       row.ProductNo,
			Description:     row.Description,
			SerialNo:        row.SerialNo,
			Qty:             row.Qty,
			Price:           row.Price,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(&replica).Error; err != nil {
			return nil, fmt.Errorf("failed to replicate row %s: %w", oldID, err)
		}
		idMap[oldID] = replica.ID
	}
	return idMap, nil
}

// ListVersions returns all versions of a quote, newest first.
func (vs *VersionService) ListVersions(quoteID uint) ([]models.QuoteVersionGorm, error) {
	var versions []models.QuoteVersionGorm
	if err := vs.db.Where("quote_id = ?", quoteID).Order("id DESC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("failed to list versions of quote %d: %w", quoteID, err)
	}
	return versions, nil
}

// SetActiveVersion points the quote at the given version, or back at the
// base quote state when versionID is zero.
func (vs *VersionService) SetActiveVersion(quoteID uint, versionID uint) error {
	var quote models.QuoteGorm
	if err := vs.db.First(&quote, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuoteNotFound
		}
		return err
	}

	if versionID == 0 {
		return vs.db.Model(&quote).Update("active_version_id", nil).Error
	}

	var version models.QuoteVersionGorm
	if err := vs.db.Where("id = ? AND quote_id = ?", versionID, quoteID).First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVersionNotFound
		}
		return err
	}
	return vs.db.Model(&quote).Update("active_version_id", version.ID).Error
}

// DeleteVersion removes a version and its rows. If the version was active
// the quote falls back to its base state.
func (vs *VersionService) DeleteVersion(quoteID uint, versionID uint) error {
	return vs.db.Transaction(func(tx *gorm.DB) error {
		var version models.QuoteVersionGorm
		if err := tx.Where("id = ? AND quote_id = ?", versionID, quoteID).First(&version).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return err
		}

		if err := tx.Where("version_id = ?", versionID).Delete(&models.MappedRowGorm{}).Error; err != nil {
			return fmt.Errorf("failed to delete rows of version %d: %w", versionID, err)
		}
		if err := tx.Delete(&version).Error; err != nil {
			return fmt.Errorf("failed to delete version %d: %w", versionID, err)
		}

		res := tx.Model(&models.QuoteGorm{}).
			Where("id = ? AND active_version_id = ?", quoteID, versionID).
			Update("active_version_id", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Printf("[versions] quote %d fell back to base state after deleting version %d", quoteID, versionID)
		}
		return nil
	})
}

func cloneGroupList(groups models.GroupList) models.GroupList {
	cloned := make(models.GroupList, len(groups))
	for i, g := range groups {
		rows := make([]string, len(g.RowsIDs))
		copy(rows, g.RowsIDs)
		g.RowsIDs = rows
		cloned[i] = g
	}
	return cloned
}

// remapGroupList rewrites group membership through the old-id to new-id
// map. Ids with no replica are dropped, not errored.
func remapGroupList(groups models.GroupList, idMap map[string]string) {
	for i := range groups {
		remapped := make([]string, 0, len(groups[i].RowsIDs))
		for _, id := range groups[i].RowsIDs {
			if newID, ok := idMap[id]; ok {
				remapped = append(remapped, newID)
			}
		}
		groups[i].RowsIDs = remapped
	}
}
