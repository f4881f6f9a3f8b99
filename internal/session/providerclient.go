package session

import (
	"context"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/provider"
)

// ProviderClient adapts the hosted-backend auth client to the Provider
// interface the manager consumes.
type ProviderClient struct {
	client *provider.Client
}

func NewProviderClient(client *provider.Client) *ProviderClient {
	return &ProviderClient{client: client}
}

func (p *ProviderClient) SignInWithPassword(ctx context.Context, email, password string) (RemoteSession, error) {
	remote, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return RemoteSession{}, err
	}
	return RemoteSession{UserID: remote.UserID}, nil
}

func (p *ProviderClient) Refresh(ctx context.Context) (RemoteSession, error) {
	remote, err := p.client.Refresh(ctx)
	if err != nil {
		return RemoteSession{}, err
	}
	return RemoteSession{UserID: remote.UserID}, nil
}

func (p *ProviderClient) SessionPresent() bool {
	return p.client.CurrentSession() != nil
}

func (p *ProviderClient) SignOut(ctx context.Context) error {
	return p.client.SignOut(ctx)
}
