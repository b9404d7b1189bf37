package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hoardapp/hoard/hoard/database/models"
	"github.com/hoardapp/hoard/hoard/trading"
	"github.com/uptrace/bun"
)

// AccountRepository owns the (group, member) -> account mapping and answers
// the engine's directory questions. It implements trading.Directory.
type AccountRepository interface {
	trading.Directory

	GetOrCreate(ctx context.Context, groupID, memberID string) (*models.Account, error)
	GroupAccounts(ctx context.Context, groupID string) ([]*models.Account, error)
	MemberRole(ctx context.Context, groupID, memberID string) (models.GroupRole, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	UpsertMember(ctx context.Context, member *models.GroupMember) error
}

type accountRepository struct {
	db *bun.DB
}

func NewAccountRepository(db *bun.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) ResolveAccountID(ctx context.Context, groupID, memberID string) (string, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Column("id").
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: member %s in group %s", trading.ErrAccountNotFound, memberID, groupID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve account: %w", err)
	}
	return account.ID, nil
}

// IsTradeEligible is false for non-members and for the DM, who administers
// inventories but never takes part in trades.
func (r *accountRepository) IsTradeEligible(ctx context.Context, groupID, memberID string) (bool, error) {
	role, err := r.MemberRole(ctx, groupID, memberID)
	if err != nil {
		return false, err
	}
	return role == models.RolePlayer, nil
}

func (r *accountRepository) MemberRole(ctx context.Context, groupID, memberID string) (models.GroupRole, error) {
	member := new(models.GroupMember)
	err := r.db.NewSelect().
		Model(member).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}
	return member.Role, nil
}

func (r *accountRepository) GetOrCreate(ctx context.Context, groupID, memberID string) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Scan(ctx)
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account = &models.Account{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		MemberID: memberID,
	}
	_, err = r.db.NewInsert().
		Model(account).
		On("CONFLICT (group_id, member_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// Lost a concurrent insert race: re-read the winner.
	err = r.db.NewSelect().
		Model(account).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) GroupAccounts(ctx context.Context, groupID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.NewSelect().
		Model(&accounts).
		Where("group_id = ?", groupID).
		Order("member_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get group accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) CountMembers(ctx context.Context, groupID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.GroupMember)(nil)).
		Where("group_id = ?", groupID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return count, nil
}

func (r *accountRepository) UpsertMember(ctx context.Context, member *models.GroupMember) error {
	_, err := r.db.NewInsert().
		Model(member).
		On("CONFLICT (group_id, member_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert group member: %w", err)
	}
	return nil
}
