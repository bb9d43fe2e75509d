package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"groupgate/internal/domain"
	"groupgate/internal/repository"
)

// Codes are stored as hashes under vcode:{group}:{code}; vcodes:{group}
// is the per-group index set. Expiry is kept as unix seconds so the
// redeem script can compare it server side.
const (
	fieldBatchID    = "batch_id"
	fieldUsed       = "used"
	fieldRedeemedBy = "redeemed_by"
	fieldRedeemedAt = "redeemed_at"
	fieldExpiresOn  = "expires_on"
	fieldCreatedOn  = "created_on"
)

// redeemScript performs the check-and-set as one atomic unit; Redis runs
// scripts without interleaving other commands, which is the per-key
// critical section the redeem contract requires.
var redeemScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  return 'NOT_FOUND'
end
if redis.call('HGET', key, 'used') == '1' then
  return 'ALREADY_USED'
end
local exp = redis.call('HGET', key, 'expires_on')
if exp and exp ~= '' and tonumber(exp) <= tonumber(ARGV[2]) then
  return 'EXPIRED'
end
redis.call('HSET', key, 'used', '1', 'redeemed_by', ARGV[1], 'redeemed_at', ARGV[3])
return 'REDEEMED'
`)

type codeRepository struct {
	client *redis.Client
}

func NewCodeRepository(client *redis.Client) repository.CodeRepository {
	return &codeRepository{client: client}
}

func codeKey(groupID, code string) string {
	return fmt.Sprintf("vcode:%s:%s", groupID, code)
}

func groupKey(groupID string) string {
	return fmt.Sprintf("vcodes:%s", groupID)
}

func (r *codeRepository) TryRedeem(ctx context.Context, groupID, code, applicantID string) (domain.RedeemResult, error) {
	now := time.Now()
	res, err := redeemScript.Run(ctx, r.client,
		[]string{codeKey(groupID, code)},
		applicantID, now.Unix(), now.Format(time.RFC3339)).Text()
	if err != nil {
		return domain.RedeemStoreUnavailable, err
	}
	switch res {
	case "REDEEMED":
		return domain.RedeemRedeemed, nil
	case "ALREADY_USED":
		return domain.RedeemAlreadyUsed, nil
	case "EXPIRED":
		return domain.RedeemExpired, nil
	default:
		return domain.RedeemNotFound, nil
	}
}

func (r *codeRepository) CreateBatch(ctx context.Context, codes []domain.VerificationCode) error {
	pipe := r.client.TxPipeline()
	for i := range codes {
		c := &codes[i]
		expiresOn := ""
		if c.ExpiresOn != nil {
			expiresOn = strconv.FormatInt(c.ExpiresOn.Unix(), 10)
		}
		pipe.HSet(ctx, codeKey(c.GroupID, c.Code),
			fieldBatchID, c.BatchID,
			fieldUsed, "0",
			fieldExpiresOn, expiresOn,
			fieldCreatedOn, c.CreatedOn.Format(time.RFC3339),
		)
		pipe.SAdd(ctx, groupKey(c.GroupID), c.Code)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *codeRepository) GetByCode(ctx context.Context, groupID, code string) (*domain.VerificationCode, error) {
	vals, err := r.client.HGetAll(ctx, codeKey(groupID, code)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}

	c := &domain.VerificationCode{
		Code:    code,
		GroupID: groupID,
		BatchID: vals[fieldBatchID],
		Used:    vals[fieldUsed] == "1",
	}
	if v := vals[fieldRedeemedBy]; v != "" {
		c.RedeemedBy = &v
	}
	if v := vals[fieldRedeemedAt]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.RedeemedAt = &t
		}
	}
	if v := vals[fieldExpiresOn]; v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(sec, 0)
			c.ExpiresOn = &t
		}
	}
	if v := vals[fieldCreatedOn]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.CreatedOn = t
		}
	}
	return c, nil
}

func (r *codeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	iter := r.client.Scan(ctx, 0, "vcodes:*", 0).Iterator()
	for iter.Next(ctx) {
		group := iter.Val()[len("vcodes:"):]
		codes, err := r.client.SMembers(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, err
		}
		for _, code := range codes {
			key := codeKey(group, code)
			vals, err := r.client.HMGet(ctx, key, fieldUsed, fieldExpiresOn).Result()
			if err != nil {
				return deleted, err
			}
			used, _ := vals[0].(string)
			expStr, _ := vals[1].(string)
			if used == "1" || expStr == "" {
				continue
			}
			sec, err := strconv.ParseInt(expStr, 10, 64)
			if err != nil || time.Unix(sec, 0).After(before) {
				continue
			}
			pipe := r.client.TxPipeline()
			pipe.Del(ctx, key)
			pipe.SRem(ctx, iter.Val(), code)
			if _, err := pipe.Exec(ctx); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (r *codeRepository) CountByGroup(ctx context.Context, groupID string) (int64, int64, error) {
	codes, err := r.client.SMembers(ctx, groupKey(groupID)).Result()
	if err != nil {
		return 0, 0, err
	}
	var total, unused int64
	for _, code := range codes {
		used, err := r.client.HGet(ctx, codeKey(groupID, code), fieldUsed).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		total++
		if used != "1" {
			unused++
		}
	}
	return total, unused, nil
}
