package onboarding

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveProvisioner clones a template spreadsheet for each new user and
// shares it with their email.
type DriveProvisioner struct {
	svc        *drive.Service
	templateID string
}

// NewDriveProvisioner builds a provisioner using ambient Google
// credentials.
func NewDriveProvisioner(ctx context.Context, templateID string, opts ...option.ClientOption) (*DriveProvisioner, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewDriveProvisioner: drive service: %w", err)
	}
	return &DriveProvisioner{svc: svc, templateID: templateID}, nil
}

// ProvisionLedger copies the template and grants the user writer access.
func (p *DriveProvisioner) ProvisionLedger(ctx context.Context, email, phoneNumber string) (string, error) {
	copied := &drive.File{Name: "SpendTrace Ledger: " + phoneNumber}
	newSheet, err := p.svc.Files.Copy(p.templateID, copied).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("ProvisionLedger: copy template: %w", err)
	}

	perm := &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}
	_, err = p.svc.Permissions.Create(newSheet.Id, perm).
		TransferOwnership(false).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("ProvisionLedger: share with %s: %w", email, err)
	}

	return newSheet.Id, nil
}

var _ Provisioner = (*DriveProvisioner)(nil)
