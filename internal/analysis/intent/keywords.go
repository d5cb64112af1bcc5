package intent

// Keyword tables are matched against lower-cased text, so entries stay lower case.

var compoundRules = []compoundRule{
	{intent: Restaurant, all: []string{"ร้าน", "อร่อย"}},
	{intent: Restaurant, all: []string{"where", "eat"}},
	{intent: Restaurant, all: []string{"restaurant"}},
	{intent: Activity, all: []string{"where", "visit"}},
	{intent: Activity, all: []string{"attraction"}},
	{intent: Activity, all: []string{"ที่เที่ยว"}},
}

var restaurantKeywords = []string{
	"อาหาร", "ร้านอาหาร", "กิน", "อร่อย", "ร้าน", "อาหารเช้า",
	"อาหารกลางวัน", "อาหารเย็น", "มื้อ", "เมนู", "จาน", "ทาน",
	"รสชาติ", "ราคา", "ค่าอาหาร", "คาเฟ่", "กาแฟ", "ขนม", "ของหวาน",
	"อาหารพื้นเมือง", "อาหารเหนือ", "อาหารใต้", "อาหารอีสาน", "อาหารทะเล",
	"สั่งอาหาร", "เชฟ", "บุฟเฟ่ต์", "ร้านอร่อย", "ของกิน", "กับข้าว", "ของทานเล่น",

	"restaurant", "food", "eat", "cafe", "breakfast", "lunch", "dinner",
	"meal", "dish", "menu", "cuisine", "delicious", "tasty", "dining", "snack",
	"dessert", "coffee shop", "street food", "local food", "chef", "buffet",
	"restaurant recommendation", "where to eat",
}

var activityKeywords = []string{
	"เที่ยว", "สถานที่", "ไป", "ดู", "เดินทาง", "กิจกรรม", "น้ำตก",
	"ทะเล", "ภูเขา", "วัด", "พิพิธภัณฑ์", "ตลาด", "ช้อปปิ้ง",
	"ท่องเที่ยว", "ชายหาด", "อุทยาน", "ธรรมชาติ", "แลนด์มาร์ค", "ที่เที่ยว",
	"จุดชมวิว", "จุดถ่ายรูป", "สวนสาธารณะ", "สวนสนุก", "ปีนเขา", "เดินป่า",
	"เดินเล่น", "ชมวิว", "ศิลปะ", "วัฒนธรรม", "ประเพณี", "พระธาตุ", "เจดีย์",
	"โบราณสถาน", "ประวัติศาสตร์", "อนุสาวรีย์", "หมู่บ้าน", "ชุมชน",

	"activity", "attractions", "see", "visit", "place", "temple", "market", "beach",
	"sightseeing", "tourism", "tourist spots", "landmarks", "things to do", "places to see",
	"viewpoint", "photo spot", "park", "hiking", "trekking", "adventure", "nature",
	"cultural", "historical", "heritage", "museum", "shopping", "excursion", "tour",
	"exploration", "entertainment", "sight", "destination", "scenic",
	"what to see", "where to visit",
}

var restaurantPhrases = []string{
	"ร้านอาหาร", "ที่กิน", "จะกินที่ไหน", "อาหารอร่อย",
	"where to eat", "restaurant recommend", "should i eat", "good food",
	"food in", "restaurants in", "dining", "where can i eat",
}

var activityPhrases = []string{
	"ที่เที่ยว", "สถานที่ท่องเที่ยว", "อยากไปเที่ยว",
	"places to visit", "attractions", "things to do", "where to go",
	"places to see", "visit in", "tourist spots", "temples in",
}

var followUpMarkers = []string{
	"เพิ่มเติม", "แล้ว", "ด้วย", "อีก", "ต่อ", "พวกนี้",
	"more", "also", "another", "additional", "what about", "those",
}
