package extract

import (
	"fmt"
	"time"
)

const (
	isoLayout    = "2006-01-02T15:04:05.000Z07:00"
	koDateLayout = "2006. 1. 2."
)

func extractionPrompt(text string, now time.Time) string {
	return fmt.Sprintf(`
다음 텍스트를 분석하여 캘린더에 저장할 일정 정보를 정확하게 추출해주세요.

텍스트: "%s"

분석 요구사항:

1. 제목(title) 추출:
   - 회의명, 미팅명, 약속명, 이벤트명 등이 있으면 그것을 우선 사용
   - 없으면 텍스트의 핵심 키워드를 조합하여 간결하고 명확한 제목 생성
   - 제목은 50자 이내로 작성

2. 날짜/시간 정보 분석:
   - "내일", "다음주 월요일", "오후 3시" 등의 상대적 표현을 현재 시간 기준으로 계산
   - 날짜만 있고 시간이 없는 경우: 오전 9시로 설정
   - 시간만 있고 날짜가 없는 경우: 오늘 날짜로 설정
   - 종료 시간이 없으면 시작 시간 + 1시간

3. 일정 내용 요약(description):
   - 핵심 정보만 추출하여 간결하게 작성

4. 장소(location) 추출:
   - 회의실, 주소, 온라인 플랫폼, 건물명 등

5. 참석자(attendees) 추출:
   - 유효한 이메일 주소만 포함하세요
   - 이름만 있는 경우는 제외하세요

현재 시간: %s
현재 날짜: %s

중요: 반드시 아래 JSON 형식으로만 응답하세요. 다른 텍스트나 설명은 포함하지 마세요.

{
    "title": "일정 제목",
    "description": "일정 설명",
    "startDate": "YYYY-MM-DDTHH:MM:SS",
    "endDate": "YYYY-MM-DDTHH:MM:SS",
    "location": "장소",
    "attendees": ["email@example.com"],
    "reminder": "15분 전"
}

주의사항:
- 날짜/시간 형식은 ISO 8601 표준을 따르세요 (YYYY-MM-DDTHH:MM:SS)
- 시간대는 한국 시간(Asia/Seoul)을 기준으로 하세요
- 마크다운 코드 블록을 사용하지 마세요
- 응답은 순수한 JSON 객체만 포함해야 합니다
`, text, now.UTC().Format(isoLayout), now.Format(koDateLayout))
}

func analysisPrompt(text string, now time.Time) string {
	return fmt.Sprintf(`
다음 텍스트를 일정 관점에서 상세히 분석해주세요. JSON 형식으로만 응답해주세요.

텍스트: "%s"

분석 요구사항:

1. 일정 유형: meeting(회의/미팅), appointment(약속/상담), event(이벤트/행사), reminder(알림/할일), deadline(마감일/기한)
2. 시간 정보: 명시적 시간, 상대적 시간, 기간, 반복
3. 참석자 정보:
   - 이메일 주소가 있는 경우에만 emails에 포함하세요
   - 참석자 수 (정확한 숫자 또는 "여러 명" 등)
4. 장소 정보: 구체적 주소, 건물/회의실명, 온라인 플랫폼 (Zoom, Teams 등)
5. 우선순위: urgent, important, normal, low

현재 시간: %s
현재 날짜: %s

응답 형식 (JSON만):
{
    "eventType": "meeting|appointment|event|reminder|deadline",
    "timeAnalysis": {
        "explicitTime": "명시된 시간 정보",
        "relativeTime": "상대적 시간 표현",
        "duration": "기간 정보",
        "recurring": "반복 정보"
    },
    "participants": {
        "names": ["참석자1", "참석자2"],
        "count": "참석자 수",
        "emails": ["email1@example.com"]
    },
    "location": {
        "type": "physical|online|hybrid",
        "address": "구체적 주소",
        "room": "회의실/건물명",
        "platform": "온라인 플랫폼"
    },
    "priority": "urgent|important|normal|low",
    "confidence": 0.0-1.0
}
`, text, now.UTC().Format(isoLayout), now.Format(koDateLayout))
}

func summaryPrompt(text string, maxLen int) string {
	return fmt.Sprintf(`
다음 텍스트를 %d자 이내로 요약해주세요.

텍스트: "%s"

요구사항:
1. 핵심 내용만 추출
2. 명확하고 이해하기 쉽게 작성
3. %d자 이내로 제한
4. 한국어로 작성
`, maxLen, text, maxLen)
}

func classifyPrompt(text string) string {
	return fmt.Sprintf(`
다음 텍스트를 분류해주세요.

텍스트: "%s"

분류 옵션:
- calendar: 일정/미팅 관련
- note: 노트/메모 관련
- message: 메신저/소통 관련
- other: 기타

JSON 형식으로 응답:
{
    "category": "calendar|note|message|other",
    "confidence": 0.0-1.0,
    "reason": "분류 이유"
}
`, text)
}

func tagsPrompt(text string) string {
	return fmt.Sprintf(`
다음 텍스트에서 관련 태그를 추출해주세요.

텍스트: "%s"

요구사항:
1. 텍스트의 주제와 관련된 태그 3-5개 추출
2. 쉼표로 구분하여 응답
3. 한국어 태그 사용

예시: #프로젝트, #회의, #일정, #업무
`, text)
}
