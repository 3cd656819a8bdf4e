package interfaces

import "context"

var client Factory

// Factory 数据访问入口，每类资源一个 Store.
type Factory interface {
	Offices() OfficeStore
	CodeValues() CodeValueStore
	Addresses() AddressStore
	Commands() CommandStore
	Datatables() DatatableStore
	Security() SecurityStore

	// Transaction 在同一事务中执行 fn，fn 返回错误时回滚.
	Transaction(ctx context.Context, fn func(tx Factory) error) error
	Close() error
}

func Client() Factory {
	return client
}

func SetClient(factory Factory) {
	client = factory
}
