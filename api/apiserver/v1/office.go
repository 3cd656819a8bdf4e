package v1

import (
	"strings"
	"time"
)

// ResourceNameForPermissions 机构资源在权限中的名称.
const (
	OfficeResourceName = "OFFICE"
	OfficeTypeCode     = "Office Type"
)

// OfficeResponseParameters 机构接口支持的响应字段.
var OfficeResponseParameters = []string{
	"id", "name", "nameDecorated", "externalId", "openingDate", "hierarchy",
	"parentId", "parentName", "allowedParents", "officeTypes",
}

// Office 机构，层级关系由 hierarchy 路径表示，如 .1.4.
type Office struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ParentID    *int64    `gorm:"column:parent_id;index"`
	Hierarchy   string    `gorm:"column:hierarchy;type:varchar(100);index"`
	ExternalID  *string   `gorm:"column:external_id;type:varchar(100);uniqueIndex:external_id"`
	Name        string    `gorm:"column:name;type:varchar(50);not null;uniqueIndex:name_org"`
	OpeningDate time.Time `gorm:"column:opening_date;type:date;not null"`
	OfficeType  *int64    `gorm:"column:office_type"`
}

func (Office) TableName() string {
	return "m_office"
}

// IsHeadOffice 没有上级的机构为总部.
func (o *Office) IsHeadOffice() bool {
	return o.ParentID == nil
}

// IsDescendantOf 当前机构是否位于 hierarchy 之下.
func (o *Office) IsDescendantOf(hierarchy string) bool {
	return o.Hierarchy != hierarchy && strings.HasPrefix(o.Hierarchy, hierarchy)
}

// OfficeAddress 机构地址，与机构一对一.
type OfficeAddress struct {
	OfficeID    int64   `gorm:"column:office_id;primaryKey;autoIncrement:false"`
	AddressName *string `gorm:"column:address_name;type:varchar(100)"`
	Line1       *string `gorm:"column:address_line_1;type:varchar(500)"`
	Line2       *string `gorm:"column:address_line_2;type:varchar(500)"`
	CityID      *int64  `gorm:"column:city_id"`
	StateID     *int64  `gorm:"column:state_province_id"`
	CountryID   *int64  `gorm:"column:country_id"`
	Zip         *string `gorm:"column:postal_code;type:varchar(20)"`
	PhoneNumber *string `gorm:"column:phone_number;type:varchar(20)"`
	Email       *string `gorm:"column:email;type:varchar(100)"`
}

func (OfficeAddress) TableName() string {
	return "m_office_address"
}

// OfficeAddressData 地址响应.
type OfficeAddressData struct {
	AddressName *string `json:"addressName,omitempty"`
	Line1       *string `json:"line1,omitempty"`
	Line2       *string `json:"line2,omitempty"`
	City        *int64  `json:"city,omitempty"`
	CityName    string  `json:"cityName,omitempty"`
	State       *int64  `json:"state,omitempty"`
	StateName   string  `json:"stateName,omitempty"`
	Country     *int64  `json:"country,omitempty"`
	CountryName string  `json:"countryName,omitempty"`
	Zip         *string `json:"zip,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// OfficeData 机构响应，模板字段仅在 template=true 时填充.
type OfficeData struct {
	ID             int64              `json:"id,omitempty"`
	Name           string             `json:"name,omitempty"`
	NameDecorated  string             `json:"nameDecorated,omitempty"`
	ExternalID     *string            `json:"externalId,omitempty"`
	OpeningDate    []int              `json:"openingDate,omitempty"`
	Hierarchy      string             `json:"hierarchy,omitempty"`
	ParentID       *int64             `json:"parentId,omitempty"`
	ParentName     string             `json:"parentName,omitempty"`
	OfficeType     *int64             `json:"officeType,omitempty"`
	OfficeTypeName string             `json:"officeTypeName,omitempty"`
	Address        *OfficeAddressData `json:"address,omitempty"`

	AllowedParents []OfficeData    `json:"allowedParents,omitempty"`
	OfficeTypes    []CodeValueData `json:"officeTypes,omitempty"`
	CountryData    []AddressData   `json:"countryData,omitempty"`
	StatesData     []AddressData   `json:"statesData,omitempty"`
	CitiesData     []AddressData   `json:"citiesData,omitempty"`
}

// DecorateName 每低一级加一个 .... 前缀，总部不加.
func DecorateName(name, hierarchy string) string {
	depth := strings.Count(hierarchy, ".") - 1
	if depth < 0 {
		depth = 0
	}
	return strings.Repeat("....", depth) + name
}

// OfficeDropdownData 下拉框里只保留 id 与名称.
func OfficeDropdownData(o OfficeData) OfficeData {
	return OfficeData{ID: o.ID, Name: o.Name, NameDecorated: o.NameDecorated}
}
