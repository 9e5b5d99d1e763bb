package shortener

import (
	"fmt"

	"github.com/sqids/sqids-go"
)

// Encoder 把自增 ID 编码成对外可见的短码。
//
// 设计原因：
// - 编码是纯函数：同一套 (alphabet, minLength) 配置下，同一个 ID 永远得到同一个短码，
//   不同 ID 永远得到不同短码（sqids 可逆，天然单射）
// - alphabet 经过洗牌，相当于加盐：避免短码呈现可枚举的顺序外观
// - 配置在启动时定死，进程运行期间不允许变更（变更等于换了一套编码空间）
//
// 注意（面试常问点）：
// - “自增 ID + 可逆编码”仍可能被离线枚举，缓解手段是限流而不是换编码
type Encoder struct {
	sq *sqids.Sqids
}

// NewEncoder 按给定字母表与最小长度构造编码器。
// minLength 决定短码下限：0 也会被编码成 minLength 个字符，不会返回空串。
func NewEncoder(alphabet string, minLength uint8) (*Encoder, error) {
	sq, err := sqids.New(sqids.Options{
		Alphabet:  alphabet,
		MinLength: minLength,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder init: %w", err)
	}
	return &Encoder{sq: sq}, nil
}

func (e *Encoder) Encode(id uint64) (string, error) {
	return e.sq.Encode([]uint64{id})
}
