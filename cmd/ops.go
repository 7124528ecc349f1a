package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tabulario/tabletool/cmd/tabular"
)

// Static errors for operation flag validation
var (
	ErrWhereRequired        = errors.New("--where is required")
	ErrSortColumnsRequired  = errors.New("--by is required")
	ErrGroupColumnsRequired = errors.New("--by is required")
	ErrPivotFlagsRequired   = errors.New("--index, --columns and --values are all required")
	ErrJoinWithRequired     = errors.New("--with is required")
	ErrJoinColumnsRequired  = errors.New("--on is required")
	ErrTransformRequired    = errors.New("--column and --expr are both required")
)

func applyFilter(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if whereExpr == "" {
		return nil, ErrWhereRequired
	}
	expr, err := tabular.ValidateExpression(whereExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return tabular.Filter(dataset, expr)
}

func applySort(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if len(sortBy) == 0 {
		return nil, ErrSortColumnsRequired
	}
	return tabular.SortBy(dataset, sortBy, sortDesc)
}

func applyGroup(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if len(groupByColumns) == 0 {
		return nil, ErrGroupColumnsRequired
	}
	return tabular.GroupBy(dataset, groupByColumns, valueColumn, aggregateFn)
}

func applyPivot(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if pivotIndex == "" || pivotColumn == "" || pivotValue == "" {
		return nil, ErrPivotFlagsRequired
	}
	return tabular.Pivot(dataset, pivotIndex, pivotColumn, pivotValue)
}

func applyJoin(ctx context.Context, config *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if joinWith == "" {
		return nil, ErrJoinWithRequired
	}
	if len(joinColumns) == 0 {
		return nil, ErrJoinColumnsRequired
	}

	other, err := LoadDataset(ctx, config, joinWith, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load join dataset: %w", err)
	}

	return tabular.Join(dataset, other, joinColumns, joinType)
}

func applyClean(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	return tabular.Clean(dataset), nil
}

func applyTransform(_ context.Context, _ *Config, dataset *tabular.Dataset) (*tabular.Dataset, error) {
	if transformColumn == "" || transformExpr == "" {
		return nil, ErrTransformRequired
	}
	expr, err := tabular.ValidateExpression(transformExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid transform expression: %w", err)
	}
	return tabular.Transform(dataset, transformColumn, expr)
}
