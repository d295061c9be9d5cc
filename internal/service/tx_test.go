package service

import "context"

type testTxRepos struct {
	passages  PassageWriter
	documents DocumentRepositoryInterface
	indexMeta IndexMetaRepositoryInterface
}

func (t *testTxRepos) Passages() PassageWriter {
	return t.passages
}

func (t *testTxRepos) Documents() DocumentRepositoryInterface {
	return t.documents
}

func (t *testTxRepos) IndexMeta() IndexMetaRepositoryInterface {
	return t.indexMeta
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
