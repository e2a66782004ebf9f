package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

// AWS resolves credentials through the AWS SDK default chain, treating the
// reference as a shared-config profile name (~/.aws/credentials). An empty
// reference uses the default profile. Sessions are cached per profile.
type AWS struct {
	Region string

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func (a *AWS) Credentials(ctx context.Context, ref string) (Credentials, error) {
	sess, err := a.session(ref)
	if err != nil {
		return Credentials{}, err
	}
	v, err := sess.Config.Credentials.GetWithContext(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: profile=%q: %v", ErrNotFound, ref, err)
	}
	return Credentials{
		AccessKey:    v.AccessKeyID,
		SecretKey:    v.SecretAccessKey,
		SessionToken: v.SessionToken,
	}, nil
}

// Session returns the SDK session for a profile, for reuse by other AWS clients.
func (a *AWS) Session(ref string) (*session.Session, error) {
	return a.session(ref)
}

func (a *AWS) session(ref string) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[ref]; ok {
		return s, nil
	}

	opts := session.Options{
		Profile:           ref,
		SharedConfigState: session.SharedConfigEnable,
	}
	if a.Region != "" {
		opts.Config = aws.Config{Region: aws.String(a.Region)}
	}
	s, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("aws session profile=%q: %w", ref, err)
	}
	if a.sessions == nil {
		a.sessions = map[string]*session.Session{}
	}
	a.sessions[ref] = s
	return s, nil
}
