package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/auditai/backend/internal/model"
)

// WaitTimeout bounds how long an instance state transition may take
// before the action is failed.
const WaitTimeout = 10 * time.Minute

type ec2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	ModifyInstanceAttribute(ctx context.Context, params *ec2.ModifyInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteVolume(ctx context.Context, params *ec2.DeleteVolumeInput, optFns ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error)
}

type s3API interface {
	PutPublicAccessBlock(ctx context.Context, params *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error)
}

// instanceWaiter abstracts ec2.NewInstanceStoppedWaiter so tests can
// avoid real polling.
type instanceWaiter interface {
	Wait(ctx context.Context, params *ec2.DescribeInstancesInput, maxWaitDur time.Duration, optFns ...func(*ec2.InstanceStoppedWaiterOptions)) error
}

// AWSCloudConfig carries the credentials and region for remediation
// calls against one AWS account.
type AWSCloudConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// AWSCloud applies remediation actions through the EC2 and S3 APIs.
type AWSCloud struct {
	ec2API ec2API
	s3API  s3API
	waiter instanceWaiter
	logger *slog.Logger
}

func NewAWSCloud(ctx context.Context, cfg AWSCloudConfig, logger *slog.Logger) (*AWSCloud, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	ec2Client := ec2.NewFromConfig(awsCfg)
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSCloud{
		ec2API: ec2Client,
		s3API:  s3.NewFromConfig(awsCfg),
		waiter: ec2.NewInstanceStoppedWaiter(ec2Client),
		logger: logger,
	}, nil
}

func (c *AWSCloud) Provider() model.CloudProvider {
	return model.CloudProviderAWS
}

// Execute applies the change matching the action type and returns the
// data needed to undo it where the operation is reversible.
func (c *AWSCloud) Execute(ctx context.Context, action *Action) (map[string]string, error) {
	switch action.Type {
	case model.RecommendationTypeIdleResource:
		return c.stopInstance(ctx, action)
	case model.RecommendationTypeOversizedResource:
		return c.resizeInstance(ctx, action)
	case model.RecommendationTypeUnusedDisk:
		return c.deleteVolume(ctx, action)
	case model.RecommendationTypeSecurityIssue:
		return c.blockPublicAccess(ctx, action)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, action.Type)
	}
}

// Rollback reverts a previously executed action. Only stop and resize
// are reversible; deleted volumes keep a backup snapshot instead.
func (c *AWSCloud) Rollback(ctx context.Context, action *Action) error {
	switch action.Type {
	case model.RecommendationTypeIdleResource:
		_, err := c.ec2API.StartInstances(ctx, &ec2.StartInstancesInput{
			InstanceIds: []string{action.ResourceID},
		})
		if err != nil {
			return fmt.Errorf("starting instance: %w", err)
		}
		c.logger.Info("instance restarted", "instance_id", action.ResourceID)
		return nil
	case model.RecommendationTypeOversizedResource:
		original := action.RollbackData["original_instance_type"]
		if original == "" {
			return ErrNothingToRevert
		}
		return c.changeInstanceType(ctx, action.ResourceID, original)
	default:
		return fmt.Errorf("rollback not supported for %s", action.Type)
	}
}

func (c *AWSCloud) stopInstance(ctx context.Context, action *Action) (map[string]string, error) {
	_, err := c.ec2API.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{action.ResourceID},
	})
	if err != nil {
		return nil, fmt.Errorf("stopping instance: %w", err)
	}
	c.logger.Info("instance stopped", "instance_id", action.ResourceID)
	return map[string]string{"previous_state": "running"}, nil
}

func (c *AWSCloud) resizeInstance(ctx context.Context, action *Action) (map[string]string, error) {
	targetType := action.Params["instance_type"]
	if targetType == "" {
		return nil, fmt.Errorf("params.instance_type is required for resize")
	}

	current, err := c.currentInstanceType(ctx, action.ResourceID)
	if err != nil {
		return nil, err
	}

	if err := c.changeInstanceType(ctx, action.ResourceID, targetType); err != nil {
		return nil, err
	}

	c.logger.Info("instance resized",
		"instance_id", action.ResourceID,
		"from", current,
		"to", targetType)
	return map[string]string{"original_instance_type": current}, nil
}

func (c *AWSCloud) changeInstanceType(ctx context.Context, instanceID, instanceType string) error {
	_, err := c.ec2API.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("stopping instance: %w", err)
	}

	err = c.waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, WaitTimeout)
	if err != nil {
		return fmt.Errorf("waiting for instance to stop: %w", err)
	}

	_, err = c.ec2API.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		InstanceType: &ec2types.AttributeValue{
			Value: aws.String(instanceType),
		},
	})
	if err != nil {
		return fmt.Errorf("modifying instance type: %w", err)
	}

	_, err = c.ec2API.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("starting instance after resize: %w", err)
	}
	return nil
}

func (c *AWSCloud) currentInstanceType(ctx context.Context, instanceID string) (string, error) {
	out, err := c.ec2API.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", fmt.Errorf("describing instance: %w", err)
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			return string(inst.InstanceType), nil
		}
	}
	return "", fmt.Errorf("instance %s not found", instanceID)
}

func (c *AWSCloud) deleteVolume(ctx context.Context, action *Action) (map[string]string, error) {
	snap, err := c.ec2API.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(action.ResourceID),
		Description: aws.String("backup before delete, action " + action.ID),
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeSnapshot,
				Tags: []ec2types.Tag{
					{Key: aws.String("auditai:action"), Value: aws.String(action.ID)},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating backup snapshot: %w", err)
	}
	c.logger.Info("backup snapshot created",
		"snapshot_id", aws.ToString(snap.SnapshotId),
		"volume_id", action.ResourceID)

	_, err = c.ec2API.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: aws.String(action.ResourceID),
	})
	if err != nil {
		// The snapshot survives a failed delete; keep its ID so the
		// caller can see the backup exists.
		return map[string]string{"backup_snapshot_id": aws.ToString(snap.SnapshotId)},
			fmt.Errorf("deleting volume: %w", err)
	}

	c.logger.Info("volume deleted", "volume_id", action.ResourceID)
	return map[string]string{"backup_snapshot_id": aws.ToString(snap.SnapshotId)}, nil
}

func (c *AWSCloud) blockPublicAccess(ctx context.Context, action *Action) (map[string]string, error) {
	_, err := c.s3API.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(action.ResourceID),
		PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(true),
			BlockPublicPolicy:     aws.Bool(true),
			IgnorePublicAcls:      aws.Bool(true),
			RestrictPublicBuckets: aws.Bool(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("blocking public access on bucket %s: %w", action.ResourceID, err)
	}
	c.logger.Info("public access blocked", "bucket", action.ResourceID)
	return nil, nil
}
