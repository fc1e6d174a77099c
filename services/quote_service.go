package services

import (
	"backend/models"
	"backend/repository"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// QuoteService owns the quotes table and implements the StateStore used by
// the group description service.
type QuoteService struct {
	db *gorm.DB
}

func NewQuoteService(db *gorm.DB) *QuoteService {
	return &QuoteService{db: db}
}

// SaveGroupDescription writes the state's group list and sort spec back to
// the owning table as a whole, inside one transaction.
func (qs *QuoteService) SaveGroupDescription(state *models.EditableState) error {
	return qs.db.Transaction(func(tx *gorm.DB) error {
		if state.Version != nil {
			return tx.Model(state.Version).Updates(map[string]interface{}{
				"group_description":      state.Version.GroupDescription,
				"sort_group_description": state.Version.SortGroupDescription,
			}).Error
		}
		return tx.Model(state.Quote).Updates(map[string]interface{}{
			"group_description":      state.Quote.GroupDescription,
			"sort_group_description": state.Quote.SortGroupDescription,
		}).Error
	})
}

func (qs *QuoteService) CreateQuote(req models.CreateQuoteRequest, createdBy int) (*models.QuoteGorm, error) {
	number := req.QuoteNumber
	if number == "" {
		number = repository.GenerateQuoteNumber()
	}

	quote := models.QuoteGorm{
		QuoteNumber:      number,
		CustomerName:     req.CustomerName,
		Currency:         req.Currency,
		CreatedBy:        createdBy,
		GroupDescription: models.GroupList{},
	}
	if quote.Currency == "" {
		quote.Currency = "GBP"
	}

	if err := qs.db.Create(&quote).Error; err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}
	return &quote, nil
}

func (qs *QuoteService) GetQuote(quoteID uint) (*models.QuoteGorm, error) {
	var quote models.QuoteGorm
	if err := qs.db.First(&quote, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	return &quote, nil
}

// ListQuotes returns a page of quotes, newest first, with the total count
// for pagination.
func (qs *QuoteService) ListQuotes(page, limit int) ([]models.QuoteGorm, int64, error) {
	var total int64
	if err := qs.db.Model(&models.QuoteGorm{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quotes []models.QuoteGorm
	err := qs.db.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (qs *QuoteService) UpdateQuote(quoteID uint, req models.UpdateQuoteRequest) (*models.QuoteGorm, error) {
	quote, err := qs.GetQuote(quoteID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.CustomerName != "" {
		updates["customer_name"] = req.CustomerName
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}
	if len(updates) == 0 {
		return quote, nil
	}

	if err := qs.db.Model(quote).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update quote %d: %w", quoteID, err)
	}
	return quote, nil
}

// SubmitQuote stamps the quote as submitted. Submitting twice keeps the
// original timestamp.
func (qs *QuoteService) SubmitQuote(quoteID uint) (*models.QuoteGorm, error) {
	quote, err := qs.GetQuote(quoteID)
	if err != nil {
		return nil, err
	}
	if quote.SubmittedAt != nil {
		return quote, nil
	}

	now := time.Now()
	if err := qs.db.Model(quote).Update("submitted_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to submit quote %d: %w", quoteID, err)
	}
	quote.SubmittedAt = &now
	return quote, nil
}

// DeleteQuote soft-deletes the quote. Versions and rows are kept until the
// purge job claims them.
func (qs *QuoteService) DeleteQuote(quoteID uint) error {
	res := qs.db.Delete(&models.QuoteGorm{}, quoteID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQuoteNotFound
	}
	return nil
}
