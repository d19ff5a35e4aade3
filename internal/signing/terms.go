package signing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dagym/contract-backend/pkg/enums"
)

// Term is one clause the client agrees to before signing.
type Term struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Category enums.TermCategory `json:"category"`
	Required bool               `json:"required"`
	Content  string             `json:"content"`
}

// Catalog is the fixed, ordered list of terms shown on the signing page.
type Catalog struct {
	terms []Term
	index map[string]int
}

var defaultTerms = []Term{
	{
		ID:       "service-terms",
		Title:    "서비스 이용약관 동의",
		Category: enums.TermCategoryMain,
		Required: true,
		Content:  "회사는 가맹점에 회원 관리, 출입 관리 및 결제 서비스를 제공하며 가맹점은 본 약관과 운영 정책을 준수합니다. 계약 기간은 선택한 결제 주기에 따르며 해지 의사가 없는 경우 동일 조건으로 자동 연장됩니다.",
	},
	{
		ID:       "fee-settlement",
		Title:    "수수료 및 정산 조건 동의",
		Category: enums.TermCategoryFee,
		Required: true,
		Content:  "이용 요금은 계약서에 기재된 요금제 금액으로 하며 부가세는 별도입니다. 결제 대금은 결제일로부터 영업일 기준 3일 이내에 등록된 정산 계좌로 지급됩니다.",
	},
	{
		ID:       "privacy-collection",
		Title:    "개인정보 수집 및 이용 동의",
		Category: enums.TermCategoryPrivacy,
		Required: true,
		Content:  "수집 항목: 대표자 성명, 연락처, 주소, 사업자 정보, 정산 계좌. 이용 목적: 계약 체결 및 이행, 정산, 고객 지원. 보유 기간: 계약 종료 후 5년.",
	},
	{
		ID:       "privacy-third-party",
		Title:    "개인정보 제3자 제공 동의",
		Category: enums.TermCategoryPrivacy,
		Required: false,
		Content:  "제공받는 자: 결제 대행사 및 제휴 금융기관. 제공 항목: 사업자 정보, 정산 계좌. 이용 목적: 결제 및 정산 처리.",
	},
	{
		ID:       "marketing",
		Title:    "마케팅 정보 수신 동의",
		Category: enums.TermCategoryService,
		Required: false,
		Content:  "신규 기능, 프로모션 및 이벤트 안내를 문자 또는 이메일로 받아보실 수 있습니다. 동의하지 않아도 서비스 이용에는 제한이 없습니다.",
	},
}

// NewCatalog validates the terms and keeps their order.
func NewCatalog(terms []Term) (*Catalog, error) {
	if len(terms) == 0 {
		return nil, errors.New("signing: at least one term required")
	}
	catalog := &Catalog{
		terms: make([]Term, 0, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	required := 0
	for _, term := range terms {
		id := strings.TrimSpace(term.ID)
		if id == "" {
			return nil, errors.New("signing: term id required")
		}
		if _, dup := catalog.index[id]; dup {
			return nil, fmt.Errorf("signing: duplicate term %q", id)
		}
		if !term.Category.IsValid() {
			return nil, fmt.Errorf("signing: term %q has invalid category %q", id, term.Category)
		}
		if term.Required {
			required++
		}
		term.ID = id
		catalog.index[id] = len(catalog.terms)
		catalog.terms = append(catalog.terms, term)
	}
	if required == 0 {
		return nil, errors.New("signing: at least one required term")
	}
	return catalog, nil
}

// DefaultCatalog returns the standard contract terms.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultTerms)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Terms returns every term in display order.
func (c *Catalog) Terms() []Term {
	out := make([]Term, len(c.terms))
	copy(out, c.terms)
	return out
}

func (c *Catalog) Required() []Term {
	return c.filter(true)
}

func (c *Catalog) Optional() []Term {
	return c.filter(false)
}

func (c *Catalog) Lookup(id string) (Term, bool) {
	idx, ok := c.index[id]
	if !ok {
		return Term{}, false
	}
	return c.terms[idx], true
}

func (c *Catalog) filter(required bool) []Term {
	out := make([]Term, 0, len(c.terms))
	for _, term := range c.terms {
		if term.Required == required {
			out = append(out, term)
		}
	}
	return out
}
