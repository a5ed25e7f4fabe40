package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣", "森",
}

func GenerateRandomChineseName(rng *rand.Rand) string {
	surname := commonSurnames[rng.Intn(len(commonSurnames))]
	nameLength := rng.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rng.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(rng *rand.Rand, chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, py := range pinyinArray {
		length := rng.Intn(len(py)) + 1
		username += py[:length]
	}

	digitsLength := rng.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rng.Intn(len(digits))])
	}

	return username
}

// GenerateRandomPlanner 生成一个随机的排班员账号
func GenerateRandomPlanner(rng *rand.Rand, password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName(rng)
	username := GenerateUsernameFromChineseName(rng, fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.UserRolePlanner,
	}, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	randomPassword := make([]rune, length)
	for i := range randomPassword {
		randomPassword[i] = letters[rand.Intn(len(letters))]
	}
	return string(randomPassword)
}

func GenerateRandomID(rng *rand.Rand, letterLength int, digitLength int) string {
	randomID := make([]rune, letterLength+digitLength)
	for i := range randomID {
		if i < letterLength {
			randomID[i] = letters[rng.Intn(len(letters))]
		} else {
			randomID[i] = rune(digits[rng.Intn(len(digits))])
		}
	}
	return string(randomID)
}

func GenerateRandomCrewPlan(rng *rand.Rand, season *calendar.Season) *domain.CrewPlan {
	return &domain.CrewPlan{
		Name:        "分队计划" + GenerateRandomID(rng, 3, 3),
		Description: "分队计划描述" + GenerateRandomID(rng, 20, 10),
		SeasonStart: season.Start(),
		SeasonEnd:   season.End(),
	}
}

// 按 1:1:2 的比例生成队长、副队长和普通队员
var rangerRoles = []domain.RangerRole{
	domain.RangerRoleLeader,
	domain.RangerRoleBoss,
	domain.RangerRoleMember,
	domain.RangerRoleMember,
}

var genders = []string{"Male", "Female"}

// GenerateRandomRangers 生成 n 名姓名互不相同的随机队员，所有日期都在赛季之内。
// 前 n/4 名固定为队长，保证名单一定能组成合法的分队。
func GenerateRandomRangers(rng *rand.Rand, n int, season *calendar.Season) []*domain.Ranger {
	rangers := make([]*domain.Ranger, 0, n)
	used := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		name := GenerateRandomChineseName(rng)
		for used[name] {
			name = GenerateRandomChineseName(rng) + GenerateRandomID(rng, 0, 2)
		}
		used[name] = true

		role := rangerRoles[rng.Intn(len(rangerRoles))]
		if i < n/4 {
			role = domain.RangerRoleLeader
		}

		ranger := &domain.Ranger{
			Name:                     name,
			Role:                     role,
			Gender:                   genders[rng.Intn(len(genders))],
			YearsOfExperience:        int32(rng.Intn(21)),
			FitnessCertification:     "Provincial",
			SameCrewPreferences:      []string{},
			DifferentCrewPreferences: []string{},
		}
		if rng.Intn(3) > 0 {
			ranger.FitnessCertification = domain.NationalCertification
		}
		if rng.Intn(6) == 0 {
			ranger.MixedCrewRestriction = "Yes"
		}

		// 少数队员晚到或早退
		quarter := max(season.Length()/4, 1)
		if rng.Intn(5) == 0 {
			ranger.StartDate = season.Date(rng.Intn(quarter))
		}
		if rng.Intn(5) == 0 {
			ranger.EndDate = season.Date(season.Length() - 1 - rng.Intn(quarter))
		}

		if len(rangers) > 0 && rng.Intn(4) == 0 {
			ranger.SameCrewPreferences = append(ranger.SameCrewPreferences, rangers[rng.Intn(len(rangers))].Name)
		}
		if len(rangers) > 0 && rng.Intn(6) == 0 {
			ranger.DifferentCrewPreferences = append(ranger.DifferentCrewPreferences, rangers[rng.Intn(len(rangers))].Name)
		}

		rangers = append(rangers, ranger)
	}

	return rangers
}
