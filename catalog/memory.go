package catalog

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/pricing"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a mutex-guarded in-memory catalog. Reads hand out copies, so
// callers can't mutate catalog state behind the lock's back.
type Memory struct {
	mu       sync.RWMutex
	parts    map[string]pricing.MasterPart
	products map[string]Product
	options  map[string]HardwareOption
	profiles map[string]pricing.MarkupProfile
}

var _ Source = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		parts:    make(map[string]pricing.MasterPart),
		products: make(map[string]Product),
		options:  make(map[string]HardwareOption),
		profiles: make(map[string]pricing.MarkupProfile),
	}
}

// Reset drops everything. Scenario loaders call this before reseeding.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts = make(map[string]pricing.MasterPart)
	m.products = make(map[string]Product)
	m.options = make(map[string]HardwareOption)
	m.profiles = make(map[string]pricing.MarkupProfile)
}

// =============================================================================
// MASTER PARTS
// =============================================================================

// PutPart inserts or replaces a master part, keyed by part number.
func (m *Memory) PutPart(part pricing.MasterPart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[part.PartNumber] = copyPart(part)
}

func (m *Memory) DeletePart(partNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.parts, partNumber)
}

// MasterPart implements pricing.PartSource.
func (m *Memory) MasterPart(partNumber string) (pricing.MasterPart, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	part, ok := m.parts[partNumber]
	if !ok {
		return pricing.MasterPart{}, false
	}
	return copyPart(part), true
}

// Parts lists every master part ordered by part number.
func (m *Memory) Parts() []pricing.MasterPart {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]pricing.MasterPart, 0, len(m.parts))
	for _, part := range m.parts {
		result = append(result, copyPart(part))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PartNumber < result[j].PartNumber })
	return result
}

// copyPart deep-copies the rule slices; everything else is value data.
func copyPart(part pricing.MasterPart) pricing.MasterPart {
	out := part
	if part.StockLengthRules != nil {
		out.StockLengthRules = append([]pricing.StockLengthRule{}, part.StockLengthRules...)
	}
	if part.PricingRules != nil {
		out.PricingRules = append([]pricing.PricingRule{}, part.PricingRules...)
	}
	return out
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) PutProduct(product Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = copyProduct(product)
}

func (m *Memory) Product(id string) (Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	product, ok := m.products[id]
	if !ok {
		return Product{}, false
	}
	return copyProduct(product), true
}

// Products lists every product ordered by name then ID.
func (m *Memory) Products() []Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Product, 0, len(m.products))
	for _, product := range m.products {
		result = append(result, copyProduct(product))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func copyProduct(product Product) Product {
	out := product
	if product.BOM != nil {
		out.BOM = append([]pricing.BOMLine{}, product.BOM...)
	}
	return out
}

// =============================================================================
// OPTIONS
// =============================================================================

func (m *Memory) PutOption(option HardwareOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[option.ID] = option
}

func (m *Memory) Option(id string) (HardwareOption, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	option, ok := m.options[id]
	return option, ok
}

// Options lists every option ordered by category then name.
func (m *Memory) Options() []HardwareOption {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]HardwareOption, 0, len(m.options))
	for _, option := range m.options {
		result = append(result, option)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// =============================================================================
// MARKUP PROFILES
// =============================================================================

func (m *Memory) PutProfile(profile pricing.MarkupProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = copyProfile(profile)
}

func (m *Memory) Profile(id string) (pricing.MarkupProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return pricing.MarkupProfile{}, false
	}
	return copyProfile(profile), true
}

// Profiles lists every markup profile ordered by name then ID.
func (m *Memory) Profiles() []pricing.MarkupProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]pricing.MarkupProfile, 0, len(m.profiles))
	for _, profile := range m.profiles {
		result = append(result, copyProfile(profile))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func copyProfile(profile pricing.MarkupProfile) pricing.MarkupProfile {
	out := profile
	if profile.CategoryMarkups != nil {
		out.CategoryMarkups = make(map[pricing.CostCategory]decimal.Decimal, len(profile.CategoryMarkups))
		for cat, pct := range profile.CategoryMarkups {
			out.CategoryMarkups[cat] = pct
		}
	}
	if profile.NoMarkup != nil {
		out.NoMarkup = make(map[pricing.CostCategory]bool, len(profile.NoMarkup))
		for cat, v := range profile.NoMarkup {
			out.NoMarkup[cat] = v
		}
	}
	return out
}
