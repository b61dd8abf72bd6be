package domain

import "strings"

// OutfitRole — роль предмета внутри комплекта.
type OutfitRole string

const (
	RoleBase      OutfitRole = "base"
	RoleTop       OutfitRole = "top"
	RoleBottom    OutfitRole = "bottom"
	RoleOuterwear OutfitRole = "outerwear"
	RoleShoes     OutfitRole = "shoes"
	RoleAccessory OutfitRole = "accessory"
)

// OutfitItem — один предмет комплекта.
type OutfitItem struct {
	ProductID  int64
	Role       OutfitRole
	Name       string
	Category   string
	PriceCents int64
}

// OutfitBundle — собранный комплект вокруг базового товара.
// Ровно один предмет имеет роль base; TotalPriceCents — снимок суммы цен
// на момент генерации, не живая ссылка на каталог.
type OutfitBundle struct {
	ID               string
	BaseProductID    int64
	Items            []OutfitItem
	Confidence       int
	TotalPriceCents  int64
	StyleDescription string
}

// RoleCandidates — слот комплекта: роль и список совместимых категорий.
// Для подбора используется первая категория списка, чтобы комплект
// оставался стилистически цельным.
type RoleCandidates struct {
	Role       OutfitRole
	Categories []string
}

// compatibilityTable — статичные правила совместимости категорий.
// Таблица не обязана быть симметричной: список каждой категории трактуется
// независимо.
var compatibilityTable = map[string][]RoleCandidates{
	"tops": {
		{Role: RoleBottom, Categories: []string{"bottoms", "jeans", "trousers", "shorts"}},
		{Role: RoleOuterwear, Categories: []string{"jackets", "blazers", "coats"}},
		{Role: RoleShoes, Categories: []string{"sneakers", "dress_shoes", "boots", "loafers"}},
		{Role: RoleAccessory, Categories: []string{"belts", "watches", "bags"}},
	},
	"bottoms": {
		{Role: RoleTop, Categories: []string{"shirts", "tshirts", "polo", "sweaters"}},
		{Role: RoleOuterwear, Categories: []string{"jackets", "blazers", "coats"}},
		{Role: RoleShoes, Categories: []string{"sneakers", "dress_shoes", "boots", "loafers"}},
		{Role: RoleAccessory, Categories: []string{"belts", "watches"}},
	},
	"outerwear": {
		{Role: RoleTop, Categories: []string{"shirts", "tshirts", "polo", "sweaters"}},
		{Role: RoleBottom, Categories: []string{"bottoms", "jeans", "trousers"}},
		{Role: RoleShoes, Categories: []string{"boots", "dress_shoes", "sneakers"}},
		{Role: RoleAccessory, Categories: []string{"scarves", "gloves", "hats"}},
	},
	"shoes": {
		{Role: RoleTop, Categories: []string{"shirts", "tshirts", "polo", "sweaters"}},
		{Role: RoleBottom, Categories: []string{"bottoms", "jeans", "trousers", "shorts"}},
		{Role: RoleOuterwear, Categories: []string{"jackets", "blazers", "coats"}},
		{Role: RoleAccessory, Categories: []string{"socks", "belts"}},
	},
}

// CompatibleSlots возвращает слоты комплекта для категории базового товара.
// Поиск регистронезависимый; для неизвестной категории возвращается nil —
// комплект без правил собрать нельзя.
func CompatibleSlots(category string) []RoleCandidates {
	return compatibilityTable[strings.ToLower(strings.TrimSpace(category))]
}

// KnownOutfitCategories возвращает категории, для которых есть правила.
func KnownOutfitCategories() []string {
	out := make([]string, 0, len(compatibilityTable))
	for c := range compatibilityTable {
		out = append(out, c)
	}
	return out
}

// styleTemplates — шаблоны описания стиля; выбор по slot_index mod len.
var styleTemplates = []string{
	"Modern %s look with contemporary styling",
	"Classic %s ensemble with timeless appeal",
	"Casual %s outfit perfect for everyday wear",
}

// StyleDescription возвращает описание стиля для варианта комплекта.
func StyleDescription(category string, outfitIndex int) string {
	tpl := styleTemplates[outfitIndex%len(styleTemplates)]
	return strings.Replace(tpl, "%s", strings.ToLower(category), 1)
}
