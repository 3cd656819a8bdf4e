// Package security 当前用户的加载与权限判断.
package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
)

type SecuritySrv interface {
	// AuthenticatedUser 同一请求内只查询一次数据库.
	AuthenticatedUser(ctx context.Context) (*v1.PlatformUser, error)
	ValidateHasReadPermission(ctx context.Context, resource string) error
	HasAnyPermission(ctx context.Context, codes ...string) (bool, error)
	ValidateHasAnyPermission(ctx context.Context, codes ...string) error
	ValidateCommandPermission(ctx context.Context, permissionCode string) error
	ValidateAccessToOffice(ctx context.Context, officeHierarchy string) error
	// Authenticate 校验用户名密码，供登录使用.
	Authenticate(ctx context.Context, username, password string) (*v1.AppUser, error)
}

type SecurityService struct {
	Store interfaces.Factory
}

var _ SecuritySrv = (*SecurityService)(nil)

func NewSecurityService(store interfaces.Factory) *SecurityService {
	return &SecurityService{Store: store}
}

func (s *SecurityService) AuthenticatedUser(ctx context.Context) (*v1.PlatformUser, error) {
	if u, ok := userctx.User(ctx); ok {
		return u, nil
	}
	username := userctx.Username(ctx)
	if username == "" {
		return nil, errors.WithCode(code.ErrTokenInvalid, "未找到已认证的用户")
	}
	user, err := s.Store.Security().GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.WithCode(code.ErrUserDisabled, "User %s is disabled", username)
	}
	office, err := s.Store.Offices().Get(ctx, user.OfficeID)
	if err != nil {
		return nil, err
	}
	p := v1.NewPlatformUser(user, office.Hierarchy)
	userctx.StoreUser(ctx, p)
	return p, nil
}

func (s *SecurityService) ValidateHasReadPermission(ctx context.Context, resource string) error {
	u, err := s.AuthenticatedUser(ctx)
	if err != nil {
		return err
	}
	if !u.CanRead(resource) {
		return noAuthority(fmt.Sprintf("User has no authority to view %ss", strings.ToLower(resource)))
	}
	return nil
}

func (s *SecurityService) HasAnyPermission(ctx context.Context, codes ...string) (bool, error) {
	u, err := s.AuthenticatedUser(ctx)
	if err != nil {
		return false, err
	}
	return u.HasAnyPermission(codes...), nil
}

func (s *SecurityService) ValidateHasAnyPermission(ctx context.Context, codes ...string) error {
	ok, err := s.HasAnyPermission(ctx, codes...)
	if err != nil {
		return err
	}
	if !ok {
		return noAuthority(fmt.Sprintf("User has no authority to: %s", strings.Join(codes, ", ")))
	}
	return nil
}

func (s *SecurityService) ValidateCommandPermission(ctx context.Context, permissionCode string) error {
	u, err := s.AuthenticatedUser(ctx)
	if err != nil {
		return err
	}
	if !u.CanExecute(permissionCode) {
		return noAuthority(fmt.Sprintf("User has no authority to: %s", permissionCode))
	}
	return nil
}

func (s *SecurityService) ValidateAccessToOffice(ctx context.Context, officeHierarchy string) error {
	u, err := s.AuthenticatedUser(ctx)
	if err != nil {
		return err
	}
	if !u.CanAccessOffice(officeHierarchy) {
		return errors.WithCode(code.ErrOfficeOutOfHierarchy,
			"User does not have sufficient privileges to act on the provided office")
	}
	return nil
}

func (s *SecurityService) Authenticate(ctx context.Context, username, password string) (*v1.AppUser, error) {
	user, err := s.Store.Security().GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.WithCode(code.ErrUserDisabled, "User %s is disabled", username)
	}
	if err := user.Compare(password); err != nil {
		return nil, errors.WithCode(code.ErrPasswordIncorrect, "用户名或密码错误")
	}
	return user, nil
}

func noAuthority(msg string) error {
	return errors.WithCode(code.ErrPermissionDenied, "%s", msg)
}
