package v1

// 地址字典层级
const (
	AddressTypeCountry = "country"
	AddressTypeState   = "state"
	AddressTypeCity    = "city"
)

// AddressRegion 国家、省、城市字典，parent_id 指向上一级.
type AddressRegion struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RegionType string `gorm:"column:region_type;type:varchar(20);not null;uniqueIndex:region_code"`
	Code       string `gorm:"column:region_code;type:varchar(20);not null;uniqueIndex:region_code"`
	Name       string `gorm:"column:region_name;type:varchar(100);not null"`
	ParentID   *int64 `gorm:"column:parent_id"`
}

func (AddressRegion) TableName() string {
	return "b_address_region"
}

// AddressData 地址字典响应.
type AddressData struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
}
