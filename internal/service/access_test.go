package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

func TestAccess_AuthorizePayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	appID := uuid.Must(uuid.NewV4())
	owner := model.Principal{UserID: uuid.Must(uuid.NewV4())}
	member := model.Principal{UserID: uuid.Must(uuid.NewV4())}
	stranger := model.Principal{UserID: uuid.Must(uuid.NewV4())}
	victim := uuid.Must(uuid.NewV4())

	apps := &fakeApps{}
	_ = apps.AddMember(ctx, model.AppMembership{EchoAppID: appID, UserID: owner.UserID, Role: model.RoleOwner})
	_ = apps.AddMember(ctx, model.AppMembership{EchoAppID: appID, UserID: member.UserID, Role: model.RoleCustomer})
	s := NewAccessService(&fakeUsers{}, apps)

	cases := []struct {
		name  string
		p     model.Principal
		payer uuid.UUID
		want  error
	}{
		{"self", stranger, stranger.UserID, nil},
		{"customer for another user", member, victim, errs.ErrForbidden},
		{"stranger for another user", stranger, victim, errs.ErrForbidden},
		{"owner for another user", owner, victim, nil},
		{"admin for another user", admin, victim, nil},
		{"no principal", model.Principal{}, victim, errs.ErrUnauthenticated},
	}
	for _, tc := range cases {
		err := s.AuthorizePayer(ctx, tc.p, appID, tc.payer)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, err)
		}
	}
}
