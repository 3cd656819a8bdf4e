package office

import (
	"context"
	"strconv"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/db"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// CreateOffice 处理 CREATE OFFICE，读写全部走 tx.
func (s *OfficeService) CreateOffice(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	f, err := readForm(cmd, true)
	if err != nil {
		return nil, err
	}
	parent, err := tx.Offices().Get(ctx, *f.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.Security.ValidateAccessToOffice(ctx, parent.Hierarchy); err != nil {
		return nil, err
	}
	if err := validateOfficeType(ctx, tx, f.OfficeType); err != nil {
		return nil, err
	}

	office := &v1.Office{
		ParentID:    &parent.ID,
		Name:        f.Name,
		ExternalID:  f.ExternalID,
		OpeningDate: *f.OpeningDate,
		OfficeType:  f.OfficeType,
	}
	if err := checkUnique(ctx, tx, office); err != nil {
		return nil, err
	}
	if err := tx.Offices().Create(ctx, office); err != nil {
		return nil, integrityError(err, office)
	}
	office.Hierarchy = childHierarchy(parent.Hierarchy, office.ID)
	if err := tx.Offices().Update(ctx, office); err != nil {
		return nil, integrityError(err, office)
	}

	if hasAddress(cmd) {
		addr := &v1.OfficeAddress{OfficeID: office.ID}
		if _, err := applyAddress(ctx, tx, cmd, f, addr); err != nil {
			return nil, err
		}
		if err := tx.Offices().SaveAddress(ctx, addr); err != nil {
			return nil, err
		}
	}

	log.L(ctx).Infow("机构已创建", "officeID", office.ID, "hierarchy", office.Hierarchy)
	return &v1.CommandProcessingResult{
		CommandID:  cmd.CommandID,
		OfficeID:   office.ID,
		ResourceID: office.ID,
	}, nil
}

// UpdateOffice 处理 UPDATE OFFICE，上级变更时改写自身及全部下级的 hierarchy.
func (s *OfficeService) UpdateOffice(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	f, err := readForm(cmd, false)
	if err != nil {
		return nil, err
	}
	office, err := tx.Offices().Get(ctx, cmd.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.Security.ValidateAccessToOffice(ctx, office.Hierarchy); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if cmd.IsChangeInString(ParamName, office.Name) {
		office.Name = f.Name
		changes[ParamName] = f.Name
	}
	if cmd.IsChangeInString(ParamExternalID, deref(office.ExternalID)) {
		office.ExternalID = f.ExternalID
		changes[ParamExternalID] = deref(f.ExternalID)
	}
	if cmd.IsChangeInLocalDate(ParamOpeningDate, &office.OpeningDate) {
		office.OpeningDate = *f.OpeningDate
		changes[ParamOpeningDate] = cmd.String(ParamOpeningDate)
		changes[jsoncommand.ParamDateFormat] = cmd.DateFormat()
		changes[jsoncommand.ParamLocale] = cmd.Locale()
	}
	if cmd.IsChangeInLong(ParamOfficeType, office.OfficeType) {
		if err := validateOfficeType(ctx, tx, f.OfficeType); err != nil {
			return nil, err
		}
		office.OfficeType = f.OfficeType
		changes[ParamOfficeType] = f.OfficeType
	}

	var oldHierarchy string
	if cmd.IsChangeInLong(ParamParentID, office.ParentID) {
		if office.IsHeadOffice() {
			return nil, validation.DataIntegrity(code.ErrHeadOfficeParent,
				"error.msg.office.cannot.update.parent.office.of.head.office", ParamParentID, *f.ParentID,
				"Root office cannot have a parent office.")
		}
		parent, err := tx.Offices().Get(ctx, *f.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ID == office.ID || parent.IsDescendantOf(office.Hierarchy) {
			return nil, validation.DataIntegrity(code.ErrOfficeInvalidParent,
				"error.msg.office.parentId.same.as.id.or.descendant", ParamParentID, parent.ID,
				"Cannot update office with parent office that is itself or one of its descendants.")
		}
		if err := s.Security.ValidateAccessToOffice(ctx, parent.Hierarchy); err != nil {
			return nil, err
		}
		oldHierarchy = office.Hierarchy
		office.ParentID = &parent.ID
		office.Hierarchy = childHierarchy(parent.Hierarchy, office.ID)
		changes[ParamParentID] = parent.ID
	}

	_, nameChanged := changes[ParamName]
	_, externalIDChanged := changes[ParamExternalID]
	if nameChanged || externalIDChanged {
		if err := checkUnique(ctx, tx, office); err != nil {
			return nil, err
		}
	}

	if len(changes) > 0 {
		if err := tx.Offices().Update(ctx, office); err != nil {
			return nil, integrityError(err, office)
		}
	}
	if oldHierarchy != "" {
		n, err := tx.Offices().ReplaceHierarchyPrefix(ctx, oldHierarchy, office.Hierarchy)
		if err != nil {
			return nil, err
		}
		log.L(ctx).Infof("机构 %d 层级由 %s 改为 %s，下级 %d 个", office.ID, oldHierarchy, office.Hierarchy, n)
	}

	if hasAddress(cmd) {
		addr, err := tx.Offices().GetAddress(ctx, office.ID)
		if err != nil {
			return nil, err
		}
		if addr == nil {
			addr = &v1.OfficeAddress{OfficeID: office.ID}
		}
		addrChanges, err := applyAddress(ctx, tx, cmd, f, addr)
		if err != nil {
			return nil, err
		}
		if len(addrChanges) > 0 {
			if err := tx.Offices().SaveAddress(ctx, addr); err != nil {
				return nil, err
			}
			for k, v := range addrChanges {
				changes[k] = v
			}
		}
	}

	result := &v1.CommandProcessingResult{
		CommandID:  cmd.CommandID,
		OfficeID:   office.ID,
		ResourceID: office.ID,
	}
	if len(changes) > 0 {
		result.Changes = changes
	}
	return result, nil
}

func childHierarchy(parent string, id int64) string {
	return parent + strconv.FormatInt(id, 10) + "."
}

func validateOfficeType(ctx context.Context, tx interfaces.Factory, id *int64) error {
	if id == nil {
		return nil
	}
	officeType, err := tx.CodeValues().GetCodeByName(ctx, v1.OfficeTypeCode)
	if err != nil {
		return err
	}
	cv, err := tx.CodeValues().Get(ctx, *id)
	if err != nil {
		return err
	}
	if cv.CodeID != officeType.ID {
		return errors.WithCode(code.ErrCodeValueNotFound,
			"Code value with identifier %d does not exist for code %s", *id, v1.OfficeTypeCode)
	}
	return nil
}

func checkUnique(ctx context.Context, tx interfaces.Factory, office *v1.Office) error {
	exists, err := tx.Offices().ExistsByName(ctx, office.Name, office.ID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateName(office.Name)
	}
	if office.ExternalID == nil {
		return nil
	}
	exists, err = tx.Offices().ExistsByExternalID(ctx, *office.ExternalID, office.ID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateExternalID(*office.ExternalID)
	}
	return nil
}

// integrityError 并发写入时由唯一索引兜底.
func integrityError(err error, office *v1.Office) error {
	if !db.IsDuplicateKey(err) {
		return errors.WithCode(code.ErrDatabase, "保存机构失败: %v", err)
	}
	switch key := db.DuplicateKeyName(err); key {
	case "external_id":
		return duplicateExternalID(deref(office.ExternalID))
	case "name_org":
		return duplicateName(office.Name)
	default:
		log.Warnw("未识别的唯一约束", "key", key)
		return errors.WithCode(code.ErrDataIntegrity, "Unknown data integrity issue with resource.")
	}
}

func duplicateName(name string) error {
	return validation.DataIntegrity(code.ErrOfficeDuplicateName, "error.msg.office.duplicate.name",
		ParamName, name, "Office with name `%s` already exists", name)
}

func duplicateExternalID(externalID string) error {
	return validation.DataIntegrity(code.ErrOfficeDuplicateExternalID, "error.msg.office.duplicate.externalId",
		ParamExternalID, externalID, "Office with externalId `%s` already exists", externalID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
