package sqlfmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		query string
		opts  Options
		want  string
	}{
		{
			name:  "select with where and order",
			query: "select id, name from users where id = 1 and name = 'x' order by id",
			want: strings.Join([]string{
				"SELECT",
				"  id,",
				"  name",
				"FROM",
				"  users",
				"WHERE",
				"  id = 1",
				"  AND name = 'x'",
				"ORDER BY",
				"  id",
			}, "\n"),
		},
		{
			name:  "subquery",
			query: "select * from (select id from t) s",
			want: strings.Join([]string{
				"SELECT",
				"  *",
				"FROM",
				"  (",
				"    SELECT",
				"      id",
				"    FROM",
				"      t",
				"  ) s",
			}, "\n"),
		},
		{
			name:  "join stays on the from body",
			query: "select a.id from a left join b on a.id = b.a_id",
			want: strings.Join([]string{
				"SELECT",
				"  a.id",
				"FROM",
				"  a",
				"  LEFT JOIN b ON a.id = b.a_id",
			}, "\n"),
		},
		{
			name:  "between keeps its and inline",
			query: "SELECT a FROM t WHERE a BETWEEN 1 AND 5 OR b IS NULL",
			opts:  Options{KeywordCase: KeywordLower},
			want: strings.Join([]string{
				"select",
				"  a",
				"from",
				"  t",
				"where",
				"  a between 1 and 5",
				"  or b is null",
			}, "\n"),
		},
		{
			name:  "function call and group by",
			query: "select dept, count(*) from emp group by dept having count(*) > 2",
			want: strings.Join([]string{
				"SELECT",
				"  dept,",
				"  count(*)",
				"FROM",
				"  emp",
				"GROUP BY",
				"  dept",
				"HAVING",
				"  count(*) > 2",
			}, "\n"),
		},
		{
			name:  "insert values",
			query: "insert into t (a, b) values (1, 2)",
			want: strings.Join([]string{
				"INSERT INTO",
				"  t (a, b)",
				"VALUES",
				"  (1, 2)",
			}, "\n"),
		},
		{
			name:  "statements separated by a blank line",
			query: "select 1; select 2;",
			want:  "SELECT\n  1;\n\nSELECT\n  2;",
		},
		{
			name:  "union all",
			query: "select 1 union all select 2",
			want:  "SELECT\n  1\nUNION ALL\nSELECT\n  2",
		},
		{
			name:  "preserve case with custom indent",
			query: "Select id From t",
			opts:  Options{KeywordCase: KeywordPreserve, Indent: "    "},
			want:  "Select\n    id\nFrom\n    t",
		},
		{
			name:  "blank input",
			query: "  \n ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.query, tt.opts))
		})
	}
}

func TestFormatKeepsEveryToken(t *testing.T) {
	query := "select u.email, sum(t.request_tokens + t.response_tokens) as total from users u join token_usages t on t.user_id = u.email where t.usage_date >= '20240101' group by u.email order by total desc limit 10"

	squash := func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), "") }
	assert.Equal(t, squash(query), squash(Format(query, Options{Dialect: "postgresql"})))
}

func TestSupportedDialect(t *testing.T) {
	assert.True(t, SupportedDialect("postgresql"))
	assert.True(t, SupportedDialect("MySQL"))
	assert.True(t, SupportedDialect("sql"))
	assert.False(t, SupportedDialect("cobol"))
}
