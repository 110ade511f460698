package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"skipgraph/internal/config"
	"skipgraph/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Bootstrap discovers peers by listing SRV records in a hosted
// zone, and advertises this node as an SRV record under its own
// identifier so later joiners can find it the same way.
type Route53Bootstrap struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRoute53Bootstrap builds a Route53Bootstrap from the default AWS
// credential chain.
func NewRoute53Bootstrap(cfg config.Route53Config) (*Route53Bootstrap, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load AWS config: %w", err)
	}
	return &Route53Bootstrap{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: cfg.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.DomainSuffix, "."),
		ttl:          cfg.TTL,
	}, nil
}

// Discover lists every SRV record under domainSuffix in the hosted
// zone and resolves each target to a dialable address.
func (r *Route53Bootstrap) Discover(ctx context.Context) ([]domain.Address, error) {
	var addrs []domain.Address

	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(r.hostedZoneID)}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: list records: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeSrv {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(*rrset.Name, "."), r.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				var prio, weight, port int
				var target string
				if _, err := fmt.Sscanf(*rr.Value, "%d %d %d %s", &prio, &weight, &port, &target); err != nil {
					continue
				}
				target = strings.TrimSuffix(target, ".")

				ips, err := net.LookupHost(target)
				if err != nil {
					continue
				}
				for _, ip := range ips {
					addrs = append(addrs, domain.NewAddress(ip, port))
				}
			}
		}
	}
	return addrs, nil
}

// Register upserts an SRV record naming identity's hex identifier,
// pointing at its address.
func (r *Route53Bootstrap) Register(ctx context.Context, identity domain.NodeIdentity) error {
	_, err := r.client.ChangeResourceRecordSets(ctx, r.changeInput(identity, types.ChangeActionUpsert))
	return err
}

// Deregister removes the SRV record previously published by Register.
func (r *Route53Bootstrap) Deregister(ctx context.Context, identity domain.NodeIdentity) error {
	_, err := r.client.ChangeResourceRecordSets(ctx, r.changeInput(identity, types.ChangeActionDelete))
	return err
}

func (r *Route53Bootstrap) changeInput(identity domain.NodeIdentity, action types.ChangeAction) *route53.ChangeResourceRecordSetsInput {
	recordName := fmt.Sprintf("%s.%s.", identity.ID.String(), r.domainSuffix)
	value := fmt.Sprintf("0 0 %d %s.", identity.Address.Port, identity.Address.Host)
	return &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: action,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            aws.String(recordName),
						Type:            types.RRTypeSrv,
						TTL:             aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{{Value: aws.String(value)}},
					},
				},
			},
		},
	}
}
