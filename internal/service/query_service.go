package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
)

// PriceRange ценовой фильтр поиска, цены в копейках/центах
type PriceRange string

const (
	PriceAny     PriceRange = ""
	PriceFree    PriceRange = "free"
	PriceUnder20 PriceRange = "0-20"
	Price20To50  PriceRange = "20-50"
	Price50Plus  PriceRange = "50+"
)

func ParsePriceRange(s string) (PriceRange, error) {
	switch p := PriceRange(strings.TrimSpace(s)); p {
	case PriceAny, PriceFree, PriceUnder20, Price20To50, Price50Plus:
		return p, nil
	default:
		return PriceAny, fmt.Errorf("unknown price range %q", s)
	}
}

// Match: free только бесплатные, остальные диапазоны только платные
func (p PriceRange) Match(pricing model.Pricing) bool {
	switch p {
	case PriceAny:
		return true
	case PriceFree:
		return !pricing.IsPaid
	case PriceUnder20:
		return pricing.IsPaid && pricing.Price < 2000
	case Price20To50:
		return pricing.IsPaid && pricing.Price >= 2000 && pricing.Price < 5000
	case Price50Plus:
		return pricing.IsPaid && pricing.Price >= 5000
	default:
		return false
	}
}

// Filter пустые поля не фильтруют
type Filter struct {
	Subject string
	Level   string
	Date    *model.Date
	Price   PriceRange
	Query   string // подстрока имени учителя или предмета
}

func (f Filter) match(listing model.SlotListing) bool {
	meta := listing.Slot.Metadata
	if f.Subject != "" && !strings.EqualFold(meta.Subject, f.Subject) {
		return false
	}
	if f.Level != "" && !strings.EqualFold(meta.Level, f.Level) {
		return false
	}
	if !f.Price.Match(listing.Slot.Pricing) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(listing.TeacherName), q) &&
			!strings.Contains(strings.ToLower(meta.Subject), q) {
			return false
		}
	}
	return true
}

type QueryService struct {
	slots repository.SlotRepository
	opts  options
}

func NewQueryService(slots repository.SlotRepository, opts ...Option) *QueryService {
	return &QueryService{
		slots: slots,
		opts:  newOptions(opts),
	}
}

// FindAvailable ленивая последовательность публичных свободных слотов по дате и времени начала.
// Каждый обход читает хранилище заново, пагинация на стороне вызывающего.
func (s *QueryService) FindAvailable(ctx context.Context, f Filter) iter.Seq2[model.SlotListing, error] {
	return func(yield func(model.SlotListing, error) bool) {
		now := s.opts.Now()
		from := model.DateOf(now)
		if f.Date != nil {
			if f.Date.Before(from) {
				return
			}
			from = *f.Date
		}

		for listing, err := range s.slots.ListPublicAvailable(ctx, from) {
			if err != nil {
				yield(model.SlotListing{}, fmt.Errorf("list available slots: %w", err))
				return
			}
			// Порядок по дате: после нужного дня можно остановиться
			if f.Date != nil && listing.Slot.Range.Date != *f.Date {
				return
			}
			// Сохранённый статус мог устареть до следующего прохода планировщика
			if listing.Slot.DeriveStatus(now) != model.SlotStatusAvailable {
				continue
			}
			if !f.match(listing) {
				continue
			}
			if !yield(listing, nil) {
				return
			}
		}
	}
}
