// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// AWSClient drives EC2 for the engine. It is bound to the instance this
// controller runs on: device indices are resolved against the local
// instance's attachments.
type AWSClient struct {
	ec2        ec2API
	instanceID string
	region     string
	tracer     trace.Tracer
}

// ec2API is the slice of the EC2 client the adapter uses.
type ec2API interface {
	DescribeNetworkInterfaces(ctx context.Context, params *ec2.DescribeNetworkInterfacesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
	AssignPrivateIpAddresses(ctx context.Context, params *ec2.AssignPrivateIpAddressesInput, optFns ...func(*ec2.Options)) (*ec2.AssignPrivateIpAddressesOutput, error)
	DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
	ReplaceRoute(ctx context.Context, params *ec2.ReplaceRouteInput, optFns ...func(*ec2.Options)) (*ec2.ReplaceRouteOutput, error)
	CreateRoute(ctx context.Context, params *ec2.CreateRouteInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error)
}

// New builds a client bound to endpointURL. The instance identity (instance
// ID and region) and the credentials come from the host metadata service;
// any failure here is fatal to startup.
func New(ctx context.Context, endpointURL string) (*AWSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	ident, err := imds.NewFromConfig(cfg).GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to read instance identity from the metadata service: %w", err)
	}
	cfg.Region = ident.Region

	ec2Client := ec2.NewFromConfig(cfg, func(o *ec2.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
	})

	slog.Info("Cloud adapter initialized",
		"component", "cloud",
		"instance_id", ident.InstanceID,
		"region", ident.Region,
		"endpoint", endpointURL)

	return &AWSClient{
		ec2:        ec2Client,
		instanceID: ident.InstanceID,
		region:     ident.Region,
		tracer:     otel.Tracer("xrd-ha-app"),
	}, nil
}

// AssignVIP assigns vip as a secondary address on the interface attached at
// deviceIndex, moving it from any other interface that currently holds it.
func (c *AWSClient) AssignVIP(ctx context.Context, deviceIndex int, vip netip.Addr, precheck bool) error {
	ctx, span := c.tracer.Start(ctx, "AWSClient.AssignVIP")
	defer span.End()

	eni, err := c.resolveDeviceIndex(ctx, deviceIndex)
	if err != nil {
		return err
	}

	if precheck && hasSecondaryAddress(eni, vip) {
		slog.Debug("VIP already assigned, nothing to do",
			"component", "cloud", "vip", vip.String(), "eni", aws.ToString(eni.NetworkInterfaceId))
		return nil
	}

	_, err = c.ec2.AssignPrivateIpAddresses(ctx, &ec2.AssignPrivateIpAddressesInput{
		NetworkInterfaceId: eni.NetworkInterfaceId,
		PrivateIpAddresses: []string{vip.String()},
		AllowReassignment:  aws.Bool(true),
	})
	if err != nil {
		return classify("AssignPrivateIpAddresses", err)
	}
	return nil
}

// ReplaceRoute points destination at targetENI inside routeTableID. When
// the route does not exist yet, it falls through to a create with the same
// parameters; that fallback is the only retry the adapter performs.
func (c *AWSClient) ReplaceRoute(ctx context.Context, routeTableID string, destination netip.Prefix, targetENI string, precheck bool) error {
	ctx, span := c.tracer.Start(ctx, "AWSClient.ReplaceRoute")
	defer span.End()

	if precheck {
		hit, err := c.routeMatches(ctx, routeTableID, destination, targetENI)
		if err != nil {
			return err
		}
		if hit {
			slog.Debug("Route already targets the interface, nothing to do",
				"component", "cloud", "route_table", routeTableID, "destination", destination.String())
			return nil
		}
	}

	_, err := c.ec2.ReplaceRoute(ctx, &ec2.ReplaceRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String(destination.String()),
		NetworkInterfaceId:   aws.String(targetENI),
	})
	if err == nil {
		return nil
	}
	if !isRouteNotFound(err) {
		return classify("ReplaceRoute", err)
	}

	_, err = c.ec2.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String(destination.String()),
		NetworkInterfaceId:   aws.String(targetENI),
	})
	if err != nil {
		return classify("CreateRoute", err)
	}
	return nil
}

// ValidateResource confirms that the referenced cloud object exists.
func (c *AWSClient) ValidateResource(ctx context.Context, kind ResourceKind, id string) error {
	ctx, span := c.tracer.Start(ctx, "AWSClient.ValidateResource")
	defer span.End()

	switch kind {
	case ResourceRouteTable:
		out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
			RouteTableIds: []string{id},
		})
		if err != nil {
			return classify("DescribeRouteTables", err)
		}
		if len(out.RouteTables) == 0 {
			return &Error{Kind: ErrorKindNotFound, Op: "DescribeRouteTables",
				Err: fmt.Errorf("route table %s does not exist", id)}
		}
		return nil

	case ResourceNetworkInterface:
		out, err := c.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
			NetworkInterfaceIds: []string{id},
		})
		if err != nil {
			return classify("DescribeNetworkInterfaces", err)
		}
		if len(out.NetworkInterfaces) == 0 {
			return &Error{Kind: ErrorKindNotFound, Op: "DescribeNetworkInterfaces",
				Err: fmt.Errorf("network interface %s does not exist", id)}
		}
		return nil

	case ResourceDeviceIndex:
		deviceIndex, err := strconv.Atoi(id)
		if err != nil {
			return &Error{Kind: ErrorKindPermanent, Op: "ValidateResource",
				Err: fmt.Errorf("device index %q is not a number", id)}
		}
		_, err = c.resolveDeviceIndex(ctx, deviceIndex)
		return err

	default:
		return &Error{Kind: ErrorKindPermanent, Op: "ValidateResource",
			Err: fmt.Errorf("unknown resource kind %q", kind)}
	}
}

// resolveDeviceIndex maps a local attachment index onto the network
// interface attached there on this instance.
func (c *AWSClient) resolveDeviceIndex(ctx context.Context, deviceIndex int) (*ec2types.NetworkInterface, error) {
	out, err := c.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("attachment.instance-id"), Values: []string{c.instanceID}},
			{Name: aws.String("attachment.device-index"), Values: []string{strconv.Itoa(deviceIndex)}},
		},
	})
	if err != nil {
		return nil, classify("DescribeNetworkInterfaces", err)
	}
	if len(out.NetworkInterfaces) == 0 {
		return nil, &Error{Kind: ErrorKindNotFound, Op: "DescribeNetworkInterfaces",
			Err: fmt.Errorf("no network interface attached at device index %d on instance %s", deviceIndex, c.instanceID)}
	}
	return &out.NetworkInterfaces[0], nil
}

// routeMatches reports whether the table already routes destination at
// targetENI.
func (c *AWSClient) routeMatches(ctx context.Context, routeTableID string, destination netip.Prefix, targetENI string) (bool, error) {
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		RouteTableIds: []string{routeTableID},
	})
	if err != nil {
		return false, classify("DescribeRouteTables", err)
	}
	if len(out.RouteTables) == 0 {
		return false, &Error{Kind: ErrorKindNotFound, Op: "DescribeRouteTables",
			Err: fmt.Errorf("route table %s does not exist", routeTableID)}
	}
	for _, route := range out.RouteTables[0].Routes {
		if aws.ToString(route.DestinationCidrBlock) == destination.String() &&
			aws.ToString(route.NetworkInterfaceId) == targetENI {
			return true, nil
		}
	}
	return false, nil
}

func hasSecondaryAddress(eni *ec2types.NetworkInterface, addr netip.Addr) bool {
	for _, ip := range eni.PrivateIpAddresses {
		if aws.ToBool(ip.Primary) {
			continue
		}
		if aws.ToString(ip.PrivateIpAddress) == addr.String() {
			return true
		}
	}
	return false
}
