// 本地开发小工具：给 mock 平台生成一个可用的测试 JWT，
// 配合本地起的假 odin API 调试会话缓存和 token 校验路径。
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	secretKey := []byte("local-dev-only")
	principalText := "mvcns-ja4q6-itfbg-3f4t7-fm5bn-mu5q6-3tfep-72g3n-3ciqu-icfny-eqe"
	if len(os.Args) > 1 {
		principalText = os.Args[1]
	}

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now()),
		Issuer:    "odin-dev",
		Subject:   principalText,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secretKey)
	if err != nil {
		panic(err)
	}
	fmt.Println(signedToken)
}
