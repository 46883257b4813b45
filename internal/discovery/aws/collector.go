// Package aws provides an AWS VPC/subnet/EIP discovery collector.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"iprange/internal/cidr"
	"iprange/internal/domain"
	"iprange/internal/iprange"
)

// Collector discovers AWS VPC CIDR blocks, subnet CIDR blocks, and
// Elastic IP allocations as address ranges.
type Collector struct {
	region      string
	accountID   string
	credentials aws.CredentialsProvider
}

// Option configures the collector.
type Option func(*Collector)

// WithRegion sets the AWS region to query.
func WithRegion(region string) Option {
	return func(c *Collector) { c.region = region }
}

// WithAccountID tags discovered ranges with the given account ID.
func WithAccountID(id string) Option {
	return func(c *Collector) { c.accountID = id }
}

// WithCredentials sets an explicit credentials provider, e.g. one
// returned by AssumeRole. The default credential chain is used otherwise.
func WithCredentials(provider aws.CredentialsProvider) Option {
	return func(c *Collector) { c.credentials = provider }
}

// New creates a new AWS collector.
func New(opts ...Option) *Collector {
	c := &Collector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns "aws".
func (c *Collector) Provider() string { return "aws" }

// Discover queries VPCs, subnets, and Elastic IPs in the configured
// region. Authentication uses the default AWS credential chain unless an
// explicit provider was supplied.
func (c *Collector) Discover(ctx context.Context) ([]domain.DiscoveredRange, error) {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := ec2.NewFromConfig(cfg)

	var ranges []domain.DiscoveredRange

	vpcs, err := c.discoverVPCs(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("discover vpcs: %w", err)
	}
	ranges = append(ranges, vpcs...)

	subnets, err := c.discoverSubnets(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("discover subnets: %w", err)
	}
	ranges = append(ranges, subnets...)

	eips, err := c.discoverElasticIPs(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("discover elastic ips: %w", err)
	}
	ranges = append(ranges, eips...)

	return ranges, nil
}

func (c *Collector) loadConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if c.region != "" {
		opts = append(opts, config.WithRegion(c.region))
	}
	if c.credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(c.credentials))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

func (c *Collector) discoverVPCs(ctx context.Context, client *ec2.Client) ([]domain.DiscoveredRange, error) {
	out, err := client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{})
	if err != nil {
		return nil, err
	}
	var ranges []domain.DiscoveredRange
	for _, vpc := range out.Vpcs {
		r, err := c.rangeFromCIDR(aws.ToString(vpc.VpcId), extractTagName(vpc.Tags), aws.ToString(vpc.CidrBlock))
		if err != nil {
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func (c *Collector) discoverSubnets(ctx context.Context, client *ec2.Client) ([]domain.DiscoveredRange, error) {
	out, err := client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{})
	if err != nil {
		return nil, err
	}
	var ranges []domain.DiscoveredRange
	for _, subnet := range out.Subnets {
		r, err := c.rangeFromCIDR(aws.ToString(subnet.SubnetId), extractTagName(subnet.Tags), aws.ToString(subnet.CidrBlock))
		if err != nil {
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func (c *Collector) discoverElasticIPs(ctx context.Context, client *ec2.Client) ([]domain.DiscoveredRange, error) {
	out, err := client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, err
	}
	var ranges []domain.DiscoveredRange
	for _, addr := range out.Addresses {
		publicIP := aws.ToString(addr.PublicIp)
		if publicIP == "" {
			continue
		}
		r, err := c.rangeFromCIDR(aws.ToString(addr.AllocationId), extractTagName(addr.Tags), publicIP+"/32")
		if err != nil {
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// rangeFromCIDR converts a CIDR string into a DiscoveredRange with
// endpoints in the converter's canonical text form.
func (c *Collector) rangeFromCIDR(sourceID, name, cidrText string) (domain.DiscoveredRange, error) {
	if sourceID == "" || cidrText == "" {
		return domain.DiscoveredRange{}, fmt.Errorf("missing source ID or CIDR")
	}
	prefix, err := cidr.ParseCIDROrAddr(cidrText)
	if err != nil {
		return domain.DiscoveredRange{}, err
	}
	first, last, err := cidr.PrefixRange(prefix)
	if err != nil {
		return domain.DiscoveredRange{}, err
	}
	startText, err := iprange.CanonicalText(first)
	if err != nil {
		return domain.DiscoveredRange{}, err
	}
	endText, err := iprange.CanonicalText(last)
	if err != nil {
		return domain.DiscoveredRange{}, err
	}
	fam := domain.FamilyIPv4
	if prefix.Addr().Is6() && !prefix.Addr().Is4In6() {
		fam = domain.FamilyIPv6
	}
	return domain.DiscoveredRange{
		Provider:  "aws",
		AccountID: c.accountID,
		Region:    c.region,
		SourceID:  sourceID,
		Name:      name,
		Family:    fam,
		CIDR:      prefix.String(),
		StartAddr: startText,
		EndAddr:   endText,
	}, nil
}

// extractTagName extracts the "Name" tag from a list of EC2 tags.
func extractTagName(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
