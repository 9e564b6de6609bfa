package model

import "time"

type LegalEntityKind string // 법적 실체 유형

const (
	LegalEntityPersonal LegalEntityKind = "PERSONAL" // 개인/프리랜서
	LegalEntityCompany  LegalEntityKind = "COMPANY"  // 법인
)

// Workspace is the tenant. Only the fields the tax engine reads are mapped;
// administration lives in another service.
type Workspace struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Name            string          `gorm:"type:varchar(200);not null" json:"name"`
	LegalEntityKind LegalEntityKind `gorm:"type:varchar(20);not null;default:'PERSONAL'" json:"legal_entity_kind"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Workspace) TableName() string {
	return "workspaces"
}
