package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// JWTService JWT 令牌服务
type JWTService struct {
	secretKey     []byte
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	redisClient   redis.UniversalClient // 黑名单存储，可为 nil
}

// NewJWTService 创建 JWT 服务
func NewJWTService(secretKey, issuer string, accessExpiry, refreshExpiry time.Duration, redisClient redis.UniversalClient) *JWTService {
	if accessExpiry <= 0 {
		accessExpiry = 2 * time.Hour
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		redisClient:   redisClient,
	}
}

// TokenClaims JWT 声明
type TokenClaims struct {
	UserID    string   `json:"uid"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"token_type"` // access 或 refresh
	jwt.RegisteredClaims
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (s *JWTService) GenerateTokenPair(userID, username string, roles []string) (*TokenPair, error) {
	accessToken, err := s.generateToken(userID, username, roles, "access", s.accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	refreshToken, err := s.generateToken(userID, username, roles, "refresh", s.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
	}, nil
}

func (s *JWTService) generateToken(userID, username string, roles []string, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:    userID,
		Username:  username,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("签名令牌失败: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证并解析 JWT 令牌
func (s *JWTService) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	if s.IsTokenBlacklisted(ctx, tokenString) {
		return nil, fmt.Errorf("令牌已失效")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("无效的签名算法: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("解析令牌失败: %w", err)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("无效的令牌")
}

// RefreshAccessToken 使用刷新令牌生成新的访问令牌
func (s *JWTService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("刷新令牌验证失败: %w", err)
	}
	if claims.TokenType != "refresh" {
		return nil, fmt.Errorf("令牌类型错误: 期望 refresh，实际 %s", claims.TokenType)
	}
	return s.GenerateTokenPair(claims.UserID, claims.Username, claims.Roles)
}

// InvalidateToken 使令牌失效（加入 Redis 黑名单，TTL 为剩余有效期）
func (s *JWTService) InvalidateToken(ctx context.Context, tokenString string) error {
	if s.redisClient == nil {
		return nil
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &TokenClaims{})
	if err != nil {
		return fmt.Errorf("解析令牌失败: %w", err)
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return fmt.Errorf("无效的令牌声明")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	key := fmt.Sprintf("blacklist:token:%s", tokenString)
	if err := s.redisClient.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("加入黑名单失败: %w", err)
	}
	return nil
}

// IsTokenBlacklisted 检查令牌是否在黑名单中。Redis 故障时放行，
// 避免缓存故障拖垮全部请求。
func (s *JWTService) IsTokenBlacklisted(ctx context.Context, tokenString string) bool {
	if s.redisClient == nil {
		return false
	}
	key := fmt.Sprintf("blacklist:token:%s", tokenString)
	exists, err := s.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// ExtractTokenFromBearer 从 Bearer 令牌中提取纯令牌字符串
func ExtractTokenFromBearer(bearerToken string) string {
	const prefix = "Bearer "
	if len(bearerToken) > len(prefix) && bearerToken[:len(prefix)] == prefix {
		return bearerToken[len(prefix):]
	}
	return bearerToken
}
