package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	t.Run("忽略注释和引号内的分号", func(t *testing.T) {
		script := `-- 账户表
CREATE TABLE accounts (id VARCHAR(64));
-- 默认原因
INSERT INTO notes VALUES ('a;b');

`
		stmts := splitStatements(script)

		assert.Equal(t, []string{
			"CREATE TABLE accounts (id VARCHAR(64))",
			"INSERT INTO notes VALUES ('a;b')",
		}, stmts)
	})

	t.Run("最后一条语句没有分号", func(t *testing.T) {
		stmts := splitStatements("DROP TABLE a;\nDROP TABLE b")
		assert.Equal(t, []string{"DROP TABLE a", "DROP TABLE b"}, stmts)
	})

	t.Run("空脚本", func(t *testing.T) {
		assert.Empty(t, splitStatements("-- nothing\n"))
	})
}

func TestDriverName(t *testing.T) {
	name, err := driverName("postgres")
	assert.NoError(t, err)
	assert.Equal(t, "postgres", name)

	_, err = driverName("sqlite")
	assert.Error(t, err)
}
