package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	"iprange/internal/domain"
)

// ListOrgAccounts enumerates all active accounts in the AWS Organization.
// Uses the default credential chain (management account credentials).
// Combine with AssumeRole to run discovery across every member account.
func ListOrgAccounts(ctx context.Context) ([]domain.Account, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	client := organizations.NewFromConfig(cfg)
	var accounts []domain.Account

	paginator := organizations.NewListAccountsPaginator(client, &organizations.ListAccountsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, acct := range page.Accounts {
			if acct.Status != orgtypes.AccountStatusActive {
				continue
			}
			accounts = append(accounts, domain.Account{
				ID:     derefString(acct.Id),
				Name:   derefString(acct.Name),
				Email:  derefString(acct.Email),
				Status: string(acct.Status),
			})
		}
	}
	return accounts, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
