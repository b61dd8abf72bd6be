package tr

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/manvue/go-backend/pkg/e"
)

type txKey struct{}

// CtxWithTx кладёт объект транзакции в контекст. Значение хранится как any:
// менеджер транзакций отдаёт trm.Transaction, конкретный тип проверяется
// при извлечении.
func CtxWithTx(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
